package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-radiant-inc/sprout/pkg/genome"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
)

func delegateCall(id, agentName, goal string) llm.ContentPart {
	return llm.ToolCallPart(id, delegationToolName, map[string]any{"agent": agentName, "goal": goal})
}

// Scenario 2: a root router agent delegates to a known leaf agent and
// returns the leaf's output as its own.
func TestRun_RootDelegatesToKnownAgent(t *testing.T) {
	rootProvider := llm.NewScripted("mock",
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{delegateCall("d1", "worker", "write the file")}},
			Finish:  llm.Finish{Reason: llm.FinishToolCalls},
		},
		// child agent's own plan call, consumed while the root's
		// delegation tool_call is still being dispatched
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("child finished")}},
			Finish:  llm.Finish{Reason: llm.FinishStop},
		},
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("delegated and done")}},
			Finish:  llm.Finish{Reason: llm.FinishStop},
		},
	)

	rootSpec := genome.AgentSpec{
		Name:         "root",
		Capabilities: []string{"worker"},
		Constraints:  genome.Constraints{CanSpawn: true, MaxTurns: 5},
	}
	workerSpec := genome.AgentSpec{Name: "worker", Constraints: genome.Constraints{MaxTurns: 5}}

	root, err := New(Config{
		Spec:            rootSpec,
		Provider:        rootProvider,
		AvailableAgents: []genome.AgentSpec{workerSpec},
	})
	require.NoError(t, err)

	result, err := root.Run(context.Background(), "get the file written")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "delegated and done", result.Output)
}

// An unknown delegation target produces a stumble and a failed tool-result
// instead of a panic or hang.
func TestRun_DelegationToUnknownAgentStumbles(t *testing.T) {
	provider := llm.NewScripted("mock",
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{delegateCall("d1", "ghost", "do it")}},
			Finish:  llm.Finish{Reason: llm.FinishToolCalls},
		},
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("gave up")}},
			Finish:  llm.Finish{Reason: llm.FinishStop},
		},
	)

	spec := genome.AgentSpec{
		Name:         "root",
		Capabilities: []string{"ghost"},
		Constraints:  genome.Constraints{CanSpawn: true, MaxTurns: 5},
	}
	a, err := New(Config{Spec: spec, Provider: provider})
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "delegate to nobody")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stumbles)
}
