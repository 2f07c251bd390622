package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-radiant-inc/sprout/pkg/genome"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
	"github.com/prime-radiant-inc/sprout/pkg/primitive"
)

type fakePrimitive struct{ name string }

func (f fakePrimitive) Name() string          { return f.name }
func (f fakePrimitive) Description() string   { return "fake " + f.name }
func (f fakePrimitive) Schema() map[string]any { return map[string]any{"type": "object"} }
func (f fakePrimitive) Execute(context.Context, map[string]any, primitive.Env) (primitive.Result, error) {
	return primitive.Result{Output: "ok", Success: true}, nil
}

func newTestRegistry(t *testing.T, names ...string) *primitive.Registry {
	t.Helper()
	r := primitive.NewRegistry()
	for _, n := range names {
		require.NoError(t, r.Register(fakePrimitive{name: n}))
	}
	return r
}

func TestNew_RejectsMissingName(t *testing.T) {
	_, err := New(Config{Provider: llm.NewScripted("mock")})
	assert.Error(t, err)
}

func TestNew_RejectsMissingProvider(t *testing.T) {
	_, err := New(Config{Spec: genome.AgentSpec{Name: "root"}})
	assert.Error(t, err)
}

func TestNew_FailsWhenDepthExceedsMaxDepth(t *testing.T) {
	spec := genome.AgentSpec{
		Name:        "worker",
		Constraints: genome.Constraints{MaxDepth: 2},
	}
	_, err := New(Config{Spec: spec, Depth: 2, Provider: llm.NewScripted("mock")})
	assert.ErrorIs(t, err, ErrDepthExceeded)
}

func TestNew_LeafAgentGetsPrimitiveToolsNotDelegation(t *testing.T) {
	spec := genome.AgentSpec{
		Name:         "writer",
		Capabilities: []string{"write_file"},
		Constraints:  genome.Constraints{CanSpawn: false},
	}
	a, err := New(Config{
		Spec:     spec,
		Provider: llm.NewScripted("mock"),
		Registry: newTestRegistry(t, "write_file"),
	})
	require.NoError(t, err)
	assert.False(t, a.isRouter)
	require.Len(t, a.toolDefs, 1)
	assert.Equal(t, "write_file", a.toolDefs[0].Name)
}

func TestNew_RouterAgentGetsDelegationNotPrimitives(t *testing.T) {
	spec := genome.AgentSpec{
		Name:         "planner",
		Capabilities: []string{"worker"},
		Constraints:  genome.Constraints{CanSpawn: true},
	}
	a, err := New(Config{
		Spec:            spec,
		Provider:        llm.NewScripted("mock"),
		Registry:        newTestRegistry(t, "write_file"),
		AvailableAgents: []genome.AgentSpec{{Name: "worker"}},
	})
	require.NoError(t, err)
	assert.True(t, a.isRouter)
	require.Len(t, a.toolDefs, 1)
	assert.Equal(t, delegationToolName, a.toolDefs[0].Name)
}

func TestNew_AlignsEditFileToApplyPatchForOpenAI(t *testing.T) {
	spec := genome.AgentSpec{
		Name:         "writer",
		Capabilities: []string{"edit_file"},
	}
	a, err := New(Config{
		Spec:     spec,
		Provider: llm.NewScripted("openai"),
		Registry: newTestRegistry(t, "apply_patch"),
	})
	require.NoError(t, err)
	require.Len(t, a.toolDefs, 1)
	assert.Equal(t, "apply_patch", a.toolDefs[0].Name)
}

func TestSplitCapabilities_DropsSelfReference(t *testing.T) {
	spec := genome.AgentSpec{Name: "root", Capabilities: []string{"root", "write_file"}}
	agentCaps, primCaps := splitCapabilities(spec, map[string]bool{"root": true})
	assert.Empty(t, agentCaps)
	assert.Equal(t, []string{"write_file"}, primCaps)
}
