package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/genome"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
)

func newTestBus(t *testing.T) *bus.Bus {
	t.Helper()
	b, err := bus.New("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSubmitGoal_StreamsEventsInEmissionOrder(t *testing.T) {
	b := newTestBus(t)
	provider := llm.NewScripted("mock", llm.Response{
		Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("all done")}},
		Finish:  llm.Finish{Reason: llm.FinishStop},
	})

	ctrl, err := New(Config{
		Bus:      b,
		Provider: provider,
		RootSpec: genome.AgentSpec{Name: "root", Constraints: genome.Constraints{MaxTurns: 3}},
	})
	require.NoError(t, err)

	sess, err := ctrl.SubmitGoal(context.Background(), "say hello")
	require.NoError(t, err)

	var kinds []bus.Kind
	for e := range sess.Events {
		kinds = append(kinds, e.Kind)
	}

	result, runErr := sess.Wait()
	require.NoError(t, runErr)
	assert.True(t, result.Success)
	assert.Equal(t, "all done", result.Output)

	require.NotEmpty(t, kinds)
	assert.Equal(t, bus.KindPerceive, kinds[0])
	assert.Equal(t, bus.KindSessionEnd, kinds[len(kinds)-1])
}

func TestSession_SteerForwardsToRunningAgent(t *testing.T) {
	b := newTestBus(t)
	// A first turn that dispatches an (unregistered) tool call forces a
	// second turn, giving the test's Steer call a generous window to land
	// before drainSteering runs again.
	provider := llm.NewScripted("mock",
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{
				llm.ToolCallPart("c1", "noop", map[string]any{}),
			}},
			Finish: llm.Finish{Reason: llm.FinishToolCalls},
		},
		llm.Response{
			Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("turn two")}},
			Finish:  llm.Finish{Reason: llm.FinishStop},
		},
	)

	ctrl, err := New(Config{
		Bus:      b,
		Provider: provider,
		RootSpec: genome.AgentSpec{Name: "root", Constraints: genome.Constraints{MaxTurns: 3}},
	})
	require.NoError(t, err)

	sess, err := ctrl.SubmitGoal(context.Background(), "say hello")
	require.NoError(t, err)

	sess.Steer("extra detail")

	var sawSteering bool
	for e := range sess.Events {
		if e.Kind == bus.KindSteering {
			sawSteering = true
		}
	}
	_, runErr := sess.Wait()
	require.NoError(t, runErr)
	assert.True(t, sawSteering, "steering message pushed before the agent's second turn should be drained and emitted")
}

func TestResumeAndSubmitGoal_SeedsHistoryFromPriorLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "prior.jsonl")

	prior, err := bus.New(logPath)
	require.NoError(t, err)
	prior.Emit(bus.KindPerceive, "root", 0, map[string]any{"goal": "first goal"})
	prior.Emit(bus.KindPlanEnd, "root", 0, map[string]any{
		"assistant_message": llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("did the first thing")}},
	})
	require.NoError(t, prior.Flush(context.Background()))
	require.NoError(t, prior.Close())

	b := newTestBus(t)
	provider := llm.NewScripted("mock", llm.Response{
		Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("did the second thing")}},
		Finish:  llm.Finish{Reason: llm.FinishStop},
	})

	ctrl, err := New(Config{
		Bus:      b,
		Provider: provider,
		RootSpec: genome.AgentSpec{Name: "root", Constraints: genome.Constraints{MaxTurns: 3}},
	})
	require.NoError(t, err)

	sess, err := ctrl.ResumeAndSubmitGoal(context.Background(), "second goal", logPath)
	require.NoError(t, err)
	for range sess.Events {
	}
	result, runErr := sess.Wait()
	require.NoError(t, runErr)
	assert.True(t, result.Success)

	require.NotEmpty(t, provider.Requests)
	sent := provider.Requests[0].Messages
	// sent[0] is the system prompt; the replayed history follows it.
	require.GreaterOrEqual(t, len(sent), 4)
	assert.Equal(t, "first goal", sent[1].TextContent())
	assert.Equal(t, llm.RoleAssistant, sent[2].Role)
	assert.Equal(t, "did the first thing", sent[2].TextContent())
	assert.Equal(t, "second goal", sent[len(sent)-1].TextContent())
}

func TestSession_CancelStopsRun(t *testing.T) {
	b := newTestBus(t)
	inner := llm.NewScripted("mock", llm.Response{
		Message: llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("too late")}},
		Finish:  llm.Finish{Reason: llm.FinishStop},
	})
	provider := &llm.Delayed{Inner: inner, Delay: 200 * time.Millisecond}

	ctrl, err := New(Config{
		Bus:      b,
		Provider: provider,
		RootSpec: genome.AgentSpec{Name: "root", Constraints: genome.Constraints{MaxTurns: 3}},
	})
	require.NoError(t, err)

	sess, err := ctrl.SubmitGoal(context.Background(), "say hello")
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		sess.Cancel()
	}()

	for range sess.Events {
	}

	result, runErr := sess.Wait()
	require.NoError(t, runErr)
	assert.False(t, result.Success)
}
