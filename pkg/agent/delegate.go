package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/genome"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
	"github.com/prime-radiant-inc/sprout/pkg/verify"
)

// maxToolResultBytes bounds the size of any single tool-result payload
// returned to the planning model, matching the primitive output budget.
const maxToolResultBytes = 16 * 1024

// executeDelegation runs the full delegation sub-protocol: resolve the
// target, spin up a child Agent sharing this agent's collaborators, run it
// to completion, verify, and record the outcome.
func (a *Agent) executeDelegation(ctx context.Context, d Delegation) llm.Message {
	a.emit(bus.KindActStart, map[string]any{"agent_name": d.AgentName, "goal": d.Goal})

	spec, ok := a.resolveDelegate(d.AgentName)
	if !ok {
		msg := fmt.Sprintf("delegation target %q is not a known agent", d.AgentName)
		a.recordOutcome(true, &verify.LearnSignal{
			Kind:      verify.SignalError,
			Goal:      d.Goal,
			AgentName: d.AgentName,
			Details:   verify.ActResult{AgentName: d.AgentName, Goal: d.Goal, Output: msg, Success: false},
			SessionID: a.cfg.SessionID,
			Timestamp: time.Now().UnixMilli(),
		})
		a.emit(bus.KindActEnd, map[string]any{"agent_name": d.AgentName, "success": false})
		return llm.NewToolResult(d.CallID, fmt.Sprintf("unknown agent %q", d.AgentName), true)
	}

	subGoal := d.Goal
	if len(d.Hints) > 0 {
		subGoal += "\n\nHints:\n"
		for _, h := range d.Hints {
			subGoal += "- " + h + "\n"
		}
		subGoal = strings.TrimRight(subGoal, "\n")
	}

	childLogBase := a.cfg.LogBase
	if childLogBase != "" {
		childLogBase = filepath.Join(childLogBase, "subagents", bus.NewID())
	}

	child, err := New(Config{
		Spec:            spec,
		Depth:           a.depth + 1,
		SessionID:       a.cfg.SessionID,
		Bus:             a.cfg.Bus,
		Genome:          a.cfg.Genome,
		Registry:        a.cfg.Registry,
		Provider:        a.cfg.Provider,
		Recall:          a.cfg.Recall,
		Learn:           a.cfg.Learn,
		Metrics:         a.cfg.Metrics,
		Observability:   a.cfg.Observability,
		AvailableAgents: a.cfg.AvailableAgents,
		WorkingDir:      a.cfg.WorkingDir,
		LogBase:         childLogBase,
	})
	if err != nil {
		msg := fmt.Sprintf("constructing delegate %q: %v", d.AgentName, err)
		a.recordOutcome(true, &verify.LearnSignal{
			Kind:      verify.SignalError,
			Goal:      d.Goal,
			AgentName: d.AgentName,
			Details:   verify.ActResult{AgentName: d.AgentName, Goal: d.Goal, Output: msg, Success: false},
			SessionID: a.cfg.SessionID,
			Timestamp: time.Now().UnixMilli(),
		})
		a.emit(bus.KindActEnd, map[string]any{"agent_name": d.AgentName, "success": false})
		return llm.NewToolResult(d.CallID, fmt.Sprintf("could not start agent %q: %v", d.AgentName, err), true)
	}

	result, runErr := child.Run(ctx, subGoal)
	if runErr != nil {
		result.Success = false
		if result.Output == "" {
			result.Output = runErr.Error()
		}
	}

	verdict, signal := verify.VerifyAct(result, a.cfg.SessionID)
	a.recordOutcome(verdict.Stumbled, signal)

	msg := llm.NewToolResult(d.CallID, truncateForTool(verdict.Output), !result.Success)

	a.emit(bus.KindActEnd, map[string]any{
		"agent_name":          d.AgentName,
		"success":             result.Success,
		"tool_result_message": msg,
	})

	return msg
}

// resolveDelegate looks up an agent spec, preferring the live Genome and
// falling back to the static snapshot taken at construction.
func (a *Agent) resolveDelegate(name string) (genome.AgentSpec, bool) {
	if a.cfg.Genome != nil {
		if spec, ok := a.cfg.Genome.GetAgent(name); ok {
			return spec, true
		}
	}
	for _, spec := range a.cfg.AvailableAgents {
		if spec.Name == name {
			return spec, true
		}
	}
	return genome.AgentSpec{}, false
}

// truncateForTool caps a tool-result payload at maxToolResultBytes, leaving
// a marker naming how much was cut.
func truncateForTool(s string) string {
	if len(s) <= maxToolResultBytes {
		return s
	}
	cut := len(s) - maxToolResultBytes
	return s[:maxToolResultBytes] + fmt.Sprintf("...[truncated %d bytes]", cut)
}
