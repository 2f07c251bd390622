package agent

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
	"github.com/prime-radiant-inc/sprout/pkg/primitive"
	"github.com/prime-radiant-inc/sprout/pkg/verify"
)

// classify splits an assistant message's tool_calls into delegations (name
// == delegationToolName) and primitive calls.
func (a *Agent) classify(calls []llm.ContentPart) ([]Delegation, []primitiveCall) {
	var delegations []Delegation
	var primitives []primitiveCall
	for _, c := range calls {
		if c.ToolName == delegationToolName {
			delegations = append(delegations, Delegation{
				CallID:    c.ToolCallID,
				AgentName: stringArg(c.Arguments, "agent"),
				Goal:      stringArg(c.Arguments, "goal"),
				Hints:     stringSliceArg(c.Arguments, "hints"),
			})
			continue
		}
		primitives = append(primitives, primitiveCall{CallID: c.ToolCallID, Name: c.ToolName, Args: c.Arguments})
	}
	return delegations, primitives
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// dispatch runs every delegation concurrently and every primitive
// sequentially, then returns tool-result messages in the original
// tool_call order — an ordering every provider requires.
func (a *Agent) dispatch(ctx context.Context, calls []llm.ContentPart, delegations []Delegation, primitives []primitiveCall) []llm.Message {
	results := make(map[string]llm.Message, len(calls))
	var resMu sync.Mutex

	if len(delegations) > 0 {
		g, gCtx := errgroup.WithContext(ctx)
		for _, d := range delegations {
			d := d
			g.Go(func() error {
				msg := a.executeDelegation(gCtx, d)
				resMu.Lock()
				results[d.CallID] = msg
				resMu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, p := range primitives {
		msg := a.executePrimitive(ctx, p)
		resMu.Lock()
		results[p.CallID] = msg
		resMu.Unlock()
	}

	ordered := make([]llm.Message, 0, len(calls))
	for _, c := range calls {
		if msg, ok := results[c.ToolCallID]; ok {
			ordered = append(ordered, msg)
		}
	}
	return ordered
}

// executePrimitive runs one primitive call through the registry, verifies
// the outcome, and records it.
func (a *Agent) executePrimitive(ctx context.Context, p primitiveCall) llm.Message {
	a.emit(bus.KindPrimStart, map[string]any{"name": p.Name, "args": p.Args})

	env := primitive.Env{
		AgentName:         a.spec.Name,
		AllowedReadPaths:  a.spec.Constraints.AllowedReadPaths,
		AllowedWritePaths: a.spec.Constraints.AllowedWritePaths,
		WorkingDir:        a.cfg.WorkingDir,
		Genome:            a.cfg.Genome,
	}

	var result primitive.Result
	if a.cfg.Registry == nil {
		result = primitive.Result{Success: false, Error: fmt.Sprintf("primitive: %q not registered", p.Name)}
	} else {
		res, err := a.cfg.Registry.Execute(ctx, p.Name, p.Args, env)
		result = res
		if err != nil && result.Error == "" {
			result.Error = err.Error()
		}
	}

	stumbled, signal := verify.VerifyPrimitive(
		verify.PrimitiveResult{Output: result.Output, Success: result.Success, Error: result.Error},
		p.Name, a.goal, a.cfg.SessionID,
	)
	a.recordOutcome(stumbled, signal)

	content := result.Output
	if !result.Success {
		content = result.Error
	}
	msg := llm.NewToolResult(p.CallID, content, !result.Success)

	a.emit(bus.KindPrimEnd, map[string]any{
		"name":               p.Name,
		"success":            result.Success,
		"tool_result_message": msg,
	})

	return msg
}

// recordOutcome updates stumble counters, records the completed action (and
// any stumble) in metrics when Learn is available, and then forwards a
// produced LearnSignal to the Learn queue when the agent can_learn.
func (a *Agent) recordOutcome(stumbled bool, signal *verify.LearnSignal) {
	a.mu.Lock()
	if stumbled {
		a.stumbles++
	}
	a.mu.Unlock()

	if a.cfg.Learn != nil && a.cfg.Metrics != nil {
		a.cfg.Metrics.RecordAction(a.spec.Name)
		if stumbled {
			kind := "error"
			if signal != nil {
				kind = string(signal.Kind)
			}
			a.cfg.Metrics.RecordStumble(a.spec.Name, kind)
		}
	}

	if signal != nil {
		a.emit(bus.KindLearnSignal, map[string]any{"kind": signal.Kind, "agent_name": signal.AgentName})
		if a.spec.Constraints.CanLearn && a.cfg.Learn != nil {
			a.cfg.Learn.Push(*signal)
		}
	}
}
