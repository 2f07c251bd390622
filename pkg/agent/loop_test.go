package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-radiant-inc/sprout/pkg/genome"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
)

func writeFileCall(id, path, content string) llm.ContentPart {
	return llm.ToolCallPart(id, "write_file", map[string]any{"path": path, "content": content})
}

func readFileCall(id, path string) llm.ContentPart {
	return llm.ToolCallPart(id, "read_file", map[string]any{"path": path})
}

// Scenario 1: a leaf agent creates a file and returns success.
func TestRun_LeafAgentCreatesFile(t *testing.T) {
	provider := llm.NewScripted("mock",
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{writeFileCall("c1", "out.txt", "hello")}},
			Finish:  llm.Finish{Reason: llm.FinishToolCalls},
		},
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("done")}},
			Finish:  llm.Finish{Reason: llm.FinishStop},
		},
	)

	spec := genome.AgentSpec{
		Name:         "writer",
		Capabilities: []string{"write_file"},
		Constraints:  genome.Constraints{MaxTurns: 5},
	}
	a, err := New(Config{Spec: spec, Provider: provider, Registry: newTestRegistry(t, "write_file")})
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "create out.txt")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "done", result.Output)
	assert.Equal(t, 2, result.Turns)
}

// Scenario 3: cancellation during the LLM call produces a clean interrupted
// outcome rather than a hang or spurious success.
func TestRun_CancellationDuringPlanInterrupts(t *testing.T) {
	inner := llm.NewScripted("mock", llm.Response{
		Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("too late")}},
		Finish:  llm.Finish{Reason: llm.FinishStop},
	})
	provider := &llm.Delayed{Inner: inner, Delay: 200 * time.Millisecond}

	spec := genome.AgentSpec{Name: "slow", Constraints: genome.Constraints{MaxTurns: 5}}
	a, err := New(Config{Spec: spec, Provider: provider})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := a.Run(ctx, "do something slow")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Turns)
}

// Scenario 4: the same read_file call repeated across turns is counted as
// retries and folded into the final stumble count.
func TestRun_RetryCountingAcrossTurns(t *testing.T) {
	provider := llm.NewScripted("mock",
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{
				readFileCall("c1", "foo.txt"),
				readFileCall("c2", "foo.txt"),
			}},
			Finish: llm.Finish{Reason: llm.FinishToolCalls},
		},
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{readFileCall("c3", "foo.txt")}},
			Finish:  llm.Finish{Reason: llm.FinishToolCalls},
		},
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("done")}},
			Finish:  llm.Finish{Reason: llm.FinishStop},
		},
	)

	spec := genome.AgentSpec{
		Name:         "reader",
		Capabilities: []string{"read_file"},
		Constraints:  genome.Constraints{MaxTurns: 5},
	}
	a, err := New(Config{Spec: spec, Provider: provider, Registry: newTestRegistry(t, "read_file")})
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "read foo.txt repeatedly")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Stumbles)
}
