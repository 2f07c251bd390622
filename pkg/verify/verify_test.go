package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAct_Classification(t *testing.T) {
	cases := []struct {
		name string
		in   ActResult
		kind SignalKind
	}{
		{"timeout", ActResult{Success: false, TimedOut: true}, SignalTimeout},
		{"failure", ActResult{Success: false, TimedOut: false}, SignalFailure},
		{"error", ActResult{Success: true, Stumbles: 2}, SignalError},
		{"inefficiency", ActResult{Success: true, Turns: 11}, SignalInefficiency},
		{"clean", ActResult{Success: true, Turns: 3}, ""},
		{"boundary turns", ActResult{Success: true, Turns: InefficiencyTurnThreshold}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vr, signal := VerifyAct(tc.in, "sess-1")
			assert.Equal(t, tc.kind, vr.Kind)
			assert.Equal(t, tc.kind != "", vr.Stumbled)
			if tc.kind == "" {
				assert.Nil(t, signal)
				return
			}
			require.NotNil(t, signal)
			assert.Equal(t, tc.kind, signal.Kind)
			assert.Equal(t, "sess-1", signal.SessionID)
		})
	}
}

func TestVerifyPrimitive(t *testing.T) {
	stumbled, signal := VerifyPrimitive(PrimitiveResult{Success: true}, "read_file", "goal", "sess-1")
	assert.False(t, stumbled)
	assert.Nil(t, signal)

	stumbled, signal = VerifyPrimitive(PrimitiveResult{Success: false, Error: "boom"}, "read_file", "goal", "")
	assert.True(t, stumbled)
	assert.Nil(t, signal, "no session active means no signal even though it stumbled")

	stumbled, signal = VerifyPrimitive(PrimitiveResult{Success: false, Error: "boom"}, "read_file", "goal", "sess-1")
	assert.True(t, stumbled)
	require.NotNil(t, signal)
	assert.Equal(t, SignalError, signal.Kind)
	assert.Equal(t, "read_file", signal.AgentName)
}

func TestDetectRetries(t *testing.T) {
	calls := []Call{
		{Name: "read_file", Args: map[string]any{"path": "a.go"}},
		{Name: "read_file", Args: map[string]any{"path": "b.go"}},
		{Name: "read_file", Args: map[string]any{"path": "a.go"}},
		{Name: "grep", Args: map[string]any{"pattern": "x", "path": "."}},
		{Name: "grep", Args: map[string]any{"path": ".", "pattern": "x"}},
	}
	assert.Equal(t, 2, DetectRetries(calls))
}

func TestDetectRetries_Empty(t *testing.T) {
	assert.Equal(t, 0, DetectRetries(nil))
}
