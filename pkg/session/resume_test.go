package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
)

// A perceive, plan_end, steering, plan_end sequence replays as user,
// assistant, user, assistant messages in log order.
func TestReplayEventLog_FourEventSequence(t *testing.T) {
	assistantMsg := llm.Message{Role: llm.RoleAssistant, Parts: []llm.ContentPart{llm.Text("on it")}}

	events := []*bus.Event{
		bus.NewEvent(bus.KindPerceive, "root", 0, map[string]any{"goal": "ship the feature"}),
		bus.NewEvent(bus.KindPlanEnd, "root", 0, map[string]any{"assistant_message": assistantMsg}),
		bus.NewEvent(bus.KindSteering, "root", 0, map[string]any{"text": "also update the docs"}),
		bus.NewEvent(bus.KindPlanEnd, "root", 0, map[string]any{"assistant_message": llm.NewAssistantText("noop")}),
	}

	history, err := ReplayEventLog(events)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, "ship the feature", history[0].TextContent())
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
	assert.Equal(t, llm.RoleUser, history[2].Role)
	assert.Equal(t, "also update the docs", history[2].TextContent())
	assert.Equal(t, llm.RoleAssistant, history[3].Role)
}

func TestReplayEventLog_IgnoresNonRootDepthEvents(t *testing.T) {
	events := []*bus.Event{
		bus.NewEvent(bus.KindPerceive, "root", 0, map[string]any{"goal": "top level goal"}),
		bus.NewEvent(bus.KindPerceive, "helper", 1, map[string]any{"goal": "sub agent goal"}),
	}

	history, err := ReplayEventLog(events)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "top level goal", history[0].TextContent())
}

// Scenario 6: after a compaction event on the log, the replayed history
// contains exactly one user message equal to the summary, followed by only
// the events that appeared after the compaction.
func TestReplayEventLog_CompactionDiscardsPriorHistory(t *testing.T) {
	events := []*bus.Event{
		bus.NewEvent(bus.KindPerceive, "root", 0, map[string]any{"goal": "first goal"}),
		bus.NewEvent(bus.KindSteering, "root", 0, map[string]any{"text": "more detail"}),
		bus.NewEvent(bus.KindCompaction, "root", 0, map[string]any{"summary": "summarized so far"}),
		bus.NewEvent(bus.KindSteering, "root", 0, map[string]any{"text": "after compaction"}),
	}

	history, err := ReplayEventLog(events)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, "summarized so far", history[0].TextContent())
	assert.Equal(t, "after compaction", history[1].TextContent())
}

func TestDecodeMessage_FromJSONReloadedMap(t *testing.T) {
	raw := map[string]any{
		"role": string(llm.RoleAssistant),
		"parts": []any{
			map[string]any{"type": string(llm.PartText), "text": "hello from disk"},
		},
	}

	msg, err := decodeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, llm.RoleAssistant, msg.Role)
	assert.Equal(t, "hello from disk", msg.TextContent())
}

// decodeMessage must also correctly rehydrate snake_case tool_call and
// tool_result fields, not just text parts: these are the fields whose
// mapstructure tags were previously missing from llm.ContentPart.
func TestDecodeMessage_ToolCallAndToolResultFieldsSurviveJSONRoundTrip(t *testing.T) {
	raw := map[string]any{
		"role": string(llm.RoleTool),
		"parts": []any{
			map[string]any{
				"type":         string(llm.PartToolCall),
				"tool_call_id": "call-1",
				"tool_name":    "read_file",
				"arguments":    map[string]any{"path": "README.md"},
			},
			map[string]any{
				"type":                string(llm.PartToolResult),
				"tool_call_id":        "call-1",
				"tool_result_content": "file contents",
				"is_error":            false,
			},
		},
	}

	msg, err := decodeMessage(raw)
	require.NoError(t, err)
	require.Len(t, msg.Parts, 2)

	call := msg.Parts[0]
	assert.Equal(t, llm.PartToolCall, call.Type)
	assert.Equal(t, "call-1", call.ToolCallID)
	assert.Equal(t, "read_file", call.ToolName)
	assert.Equal(t, "README.md", call.Arguments["path"])

	result := msg.Parts[1]
	assert.Equal(t, llm.PartToolResult, result.Type)
	assert.Equal(t, "call-1", result.ToolCallID)
	assert.Equal(t, "file contents", result.ToolResultContent)
	assert.False(t, result.IsError)
}
