package primitive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(ReadFile{}))

	_, ok := r.Get("read_file")
	assert.True(t, ok)
	assert.Len(t, r.List(), 1)
}

func TestRegistry_RegisterDuplicateFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(ReadFile{}))
	assert.Error(t, r.Register(ReadFile{}))
}

func TestRegistry_ExecuteUnknownPrimitiveFails(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "nope", nil, Env{})
	assert.Error(t, err)
}

func TestRegistry_ExecuteTruncatesOutput(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakePrimitive{name: "big", output: make([]byte, maxOutputBytes+100)}))

	result, err := r.Execute(context.Background(), "big", nil, Env{})
	require.NoError(t, err)
	assert.Less(t, len(result.Output), maxOutputBytes+100)
	assert.Contains(t, result.Output, "truncated")
}

func TestRegisterBuiltins_RegistersEveryPrimitive(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))

	for _, name := range []string{
		"read_file", "write_file", "edit_file", "apply_patch",
		"exec", "grep", "glob", "fetch", "save_tool", "save_file",
	} {
		_, ok := r.Get(name)
		assert.True(t, ok, "expected %s to be registered", name)
	}
}

func TestEnv_CheckReadUnrestrictedWhenEmpty(t *testing.T) {
	e := Env{}
	_, allowed := e.CheckRead("/anything")
	assert.True(t, allowed)
}

func TestEnv_CheckWriteDeniesOutsidePattern(t *testing.T) {
	e := Env{AllowedWritePaths: []string{"/tmp/workspace/*"}}
	_, allowed := e.CheckWrite("/etc/passwd")
	assert.False(t, allowed)
}

type fakePrimitive struct {
	name   string
	output []byte
}

func (f fakePrimitive) Name() string          { return f.name }
func (f fakePrimitive) Description() string   { return "fake" }
func (f fakePrimitive) Schema() map[string]any { return map[string]any{"type": "object"} }
func (f fakePrimitive) Execute(context.Context, map[string]any, Env) (Result, error) {
	return ok(string(f.output)), nil
}
