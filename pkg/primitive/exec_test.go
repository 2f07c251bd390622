package primitive

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec_SuccessCapturesStdout(t *testing.T) {
	e := Exec{}
	result, err := e.Execute(context.Background(), map[string]any{
		"command": "echo hello",
	}, Env{})
	require.NoError(t, err)
	require.True(t, result.Success)

	var out execOutput
	require.NoError(t, json.Unmarshal([]byte(result.Output), &out))
	assert.Contains(t, out.Stdout, "hello")
	assert.Equal(t, 0, out.ExitCode)
	assert.False(t, out.TimedOut)
}

func TestExec_NonZeroExitIsFailure(t *testing.T) {
	e := Exec{}
	result, err := e.Execute(context.Background(), map[string]any{
		"command": "exit 3",
	}, Env{})
	require.NoError(t, err)
	assert.False(t, result.Success)

	var out execOutput
	require.NoError(t, json.Unmarshal([]byte(result.Output), &out))
	assert.Equal(t, 3, out.ExitCode)
}

func TestExec_TimeoutMarksOutput(t *testing.T) {
	e := Exec{}
	result, err := e.Execute(context.Background(), map[string]any{
		"command":    "sleep 5",
		"timeout_ms": float64(50),
	}, Env{})
	require.NoError(t, err)
	assert.False(t, result.Success)

	var out execOutput
	require.NoError(t, json.Unmarshal([]byte(result.Output), &out))
	assert.True(t, out.TimedOut)
	assert.Contains(t, out.Stdout, "[TIMED OUT]")
}

func TestExec_MissingCommandFails(t *testing.T) {
	e := Exec{}
	result, err := e.Execute(context.Background(), map[string]any{}, Env{})
	require.NoError(t, err)
	assert.False(t, result.Success)
}
