package agent

import (
	"context"
	"time"

	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
	"github.com/prime-radiant-inc/sprout/pkg/verify"
)

const planMaxTokens = 4096

// Run executes the Agent Loop to completion for one goal: PERCEIVE, RECALL,
// then turns until the model stops calling tools or a budget is exhausted,
// then POST_PROCESS.
func (a *Agent) Run(ctx context.Context, goal string) (verify.ActResult, error) {
	a.goal = goal
	a.startedAt = time.Now()

	a.emit(bus.KindPerceive, map[string]any{"goal": goal})

	if a.cfg.Recall != nil {
		result, err := a.cfg.Recall.Recall(ctx, goal, 0)
		if err == nil {
			a.recallResult = result
		}
		a.emit(bus.KindRecall, map[string]any{"goal": goal})
	}

	if len(a.cfg.History) > 0 {
		a.history = append(a.history, a.cfg.History...)
	}
	a.history = append(a.history, llm.NewUserText(goal))

	turns := 0
	var finalOutput string
	wasCancelled := false

	for {
		if ctx.Err() != nil {
			a.emit(bus.KindInterrupted, map[string]any{"turns": turns})
			wasCancelled = true
			break
		}

		if a.spec.Constraints.TimeoutMs > 0 {
			elapsed := time.Since(a.startedAt).Milliseconds()
			if elapsed >= int64(a.spec.Constraints.TimeoutMs) {
				a.emit(bus.KindWarning, map[string]any{"reason": "timeout", "turns": turns})
				break
			}
		}

		if a.spec.Constraints.MaxTurns > 0 && turns >= a.spec.Constraints.MaxTurns {
			break
		}

		turns++
		finished, text, cancelled := a.runTurn(ctx, turns)
		if cancelled {
			wasCancelled = true
			break
		}
		if finished {
			finalOutput = text
			break
		}
	}

	return a.postProcess(turns, finalOutput, wasCancelled), nil
}

// runTurn executes one iteration of the per-turn contract: steering drain,
// plan, classify, dispatch, append, verify. It returns finished=true with
// the assistant's final text when the model stops calling tools, and
// cancelled=true when the LLM call itself was interrupted.
func (a *Agent) runTurn(ctx context.Context, turn int) (finished bool, text string, cancelled bool) {
	ctx, endSpan := a.cfg.Observability.StartTurnSpan(ctx, a.spec.Name, turn)
	defer endSpan()

	a.drainSteering()

	systemMsg := llm.Message{Role: llm.RoleSystem, Parts: []llm.ContentPart{llm.Text(a.buildSystemPrompt())}}
	messages := make([]llm.Message, 0, len(a.history)+1)
	messages = append(messages, systemMsg)
	messages = append(messages, a.history...)

	req := llm.Request{
		Messages:   messages,
		Tools:      a.toolDefs,
		ToolChoice: llm.ToolChoiceAuto,
		MaxTokens:  planMaxTokens,
	}

	a.emit(bus.KindPlanStart, map[string]any{})
	resp, err := a.cfg.Provider.Complete(ctx, req)
	if ctx.Err() != nil {
		a.emit(bus.KindInterrupted, map[string]any{})
		return false, "", true
	}
	if err != nil {
		a.emit(bus.KindWarning, map[string]any{"reason": "plan_error", "error": err.Error()})
		return true, err.Error(), false
	}

	window := contextWindowFor(a.cfg.Spec.Model)
	tokenEstimate := llm.EstimateHistoryTokens(a.history)
	a.emit(bus.KindPlanEnd, map[string]any{
		"finish_reason":           string(resp.Finish.Reason),
		"prompt_tokens":           resp.Usage.PromptTokens,
		"completion_tokens":       resp.Usage.CompletionTokens,
		"assistant_text":          resp.Message.TextContent(),
		"assistant_message":       resp.Message,
		"context_window_tokens":   window,
		"context_estimate_tokens": tokenEstimate,
	})

	a.history = append(a.history, resp.Message)

	calls := resp.Message.ToolCalls()
	if len(calls) == 0 {
		return true, resp.Message.TextContent(), false
	}

	delegations, primitives := a.classify(calls)

	a.mu.Lock()
	for _, p := range primitives {
		a.callHistory = append(a.callHistory, verify.Call{Name: p.Name, Args: p.Args})
	}
	a.mu.Unlock()

	results := a.dispatch(ctx, calls, delegations, primitives)
	a.history = append(a.history, results...)

	a.emit(bus.KindVerify, map[string]any{"turn_tool_calls": len(calls)})

	return false, "", false
}

// postProcess runs the post-loop accounting: retry detection, turn-limit and
// timeout classification, and the terminal session_end emission.
func (a *Agent) postProcess(turns int, output string, cancelled bool) verify.ActResult {
	a.mu.Lock()
	retryCount := verify.DetectRetries(a.callHistory)
	a.stumbles += retryCount
	stumblesSoFar := a.stumbles
	a.mu.Unlock()

	if retryCount > 0 && a.spec.Constraints.CanLearn && a.cfg.Learn != nil {
		a.cfg.Learn.Push(verify.LearnSignal{
			Kind:      verify.SignalRetry,
			Goal:      a.goal,
			AgentName: a.spec.Name,
			Details: verify.ActResult{
				AgentName: a.spec.Name,
				Goal:      a.goal,
				Output:    output,
				Stumbles:  retryCount,
				Turns:     turns,
			},
			SessionID: a.cfg.SessionID,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	hitTurnLimit := a.spec.Constraints.MaxTurns > 0 && turns >= a.spec.Constraints.MaxTurns
	timedOut := a.spec.Constraints.TimeoutMs > 0 && time.Since(a.startedAt).Milliseconds() >= int64(a.spec.Constraints.TimeoutMs)
	success := !hitTurnLimit && !timedOut && !cancelled

	if hitTurnLimit || timedOut {
		a.mu.Lock()
		a.stumbles++
		stumblesSoFar = a.stumbles
		a.mu.Unlock()
	}

	result := verify.ActResult{
		AgentName: a.spec.Name,
		Goal:      a.goal,
		Output:    output,
		Success:   success,
		Stumbles:  stumblesSoFar,
		Turns:     turns,
		TimedOut:  timedOut,
	}

	a.emit(bus.KindSessionEnd, map[string]any{
		"success":   success,
		"stumbles":  stumblesSoFar,
		"turns":     turns,
		"timed_out": timedOut,
		"output":    output,
	})

	if a.cfg.Bus != nil {
		_ = a.cfg.Bus.Flush(context.Background())
	}

	return result
}
