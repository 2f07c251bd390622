package learn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-radiant-inc/sprout/pkg/genome"
	"github.com/prime-radiant-inc/sprout/pkg/verify"
)

func TestApply_CreateMemory(t *testing.T) {
	g := newTestGenome(t)
	q := New(Config{Genome: g})

	pending, err := q.apply(
		verify.LearnSignal{AgentName: "worker"},
		Mutation{Type: MutationCreateMemory, CreateMemory: &CreateMemoryMutation{Content: "lesson learned"}},
	)
	require.NoError(t, err)
	assert.Equal(t, MutationCreateMemory, pending.MutationType)
	assert.NotEmpty(t, pending.CommitHash)

	memories := g.Memories()
	require.Len(t, memories, 1)
	assert.Equal(t, "lesson learned", memories[0].Content)
	assert.Equal(t, genome.SourceLearn, memories[0].Source)
}

func TestApply_UpdateAgentBumpsVersion(t *testing.T) {
	g := newTestGenome(t)
	require.NoError(t, g.AddAgent(genome.AgentSpec{Name: "writer", SystemPrompt: "old"}))
	q := New(Config{Genome: g})

	_, err := q.apply(
		verify.LearnSignal{AgentName: "writer"},
		Mutation{Type: MutationUpdateAgent, UpdateAgent: &UpdateAgentMutation{AgentName: "writer", SystemPrompt: "new"}},
	)
	require.NoError(t, err)

	spec, ok := g.GetAgent("writer")
	require.True(t, ok)
	assert.Equal(t, "new", spec.SystemPrompt)
	assert.Equal(t, 2, spec.Version)
}

func TestApply_UpdateAgentUnknownFails(t *testing.T) {
	g := newTestGenome(t)
	q := New(Config{Genome: g})

	_, err := q.apply(
		verify.LearnSignal{},
		Mutation{Type: MutationUpdateAgent, UpdateAgent: &UpdateAgentMutation{AgentName: "ghost"}},
	)
	assert.Error(t, err)
}

func TestApply_CreateAgentRejectsReservedName(t *testing.T) {
	g := newTestGenome(t)
	q := New(Config{Genome: g})

	_, err := q.apply(
		verify.LearnSignal{},
		Mutation{Type: MutationCreateAgent, CreateAgent: &CreateAgentMutation{Name: "exec"}},
	)
	assert.Error(t, err)

	_, ok := g.GetAgent("exec")
	assert.False(t, ok)
}

func TestApply_CreateAgentSucceedsWithoutSpawn(t *testing.T) {
	g := newTestGenome(t)
	q := New(Config{Genome: g})

	_, err := q.apply(
		verify.LearnSignal{},
		Mutation{Type: MutationCreateAgent, CreateAgent: &CreateAgentMutation{Name: "helper", Description: "does things"}},
	)
	require.NoError(t, err)

	spec, ok := g.GetAgent("helper")
	require.True(t, ok)
	assert.False(t, spec.Constraints.CanSpawn)
}

func TestApply_CreateRoutingRule(t *testing.T) {
	g := newTestGenome(t)
	q := New(Config{Genome: g})

	pending, err := q.apply(
		verify.LearnSignal{AgentName: "router"},
		Mutation{Type: MutationCreateRoutingRule, CreateRoutingRule: &CreateRoutingRuleMutation{Condition: "refund", Preference: "billing_agent", Strength: 0.6}},
	)
	require.NoError(t, err)
	assert.Equal(t, MutationCreateRoutingRule, pending.MutationType)

	rules := g.RoutingRules()
	require.Len(t, rules, 1)
	assert.Equal(t, "billing_agent", rules[0].Preference)
}
