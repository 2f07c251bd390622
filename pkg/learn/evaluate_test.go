package learn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-radiant-inc/sprout/pkg/genome"
)

func TestEvaluatePendingImprovements_DefersWithoutEnoughActions(t *testing.T) {
	g := newTestGenome(t)
	require.NoError(t, g.AddAgent(genome.AgentSpec{Name: "writer"}))
	m := newTestMetrics(t)

	hash, err := g.LastCommitHash()
	require.NoError(t, err)

	q := New(Config{Genome: g, Metrics: m})
	q.pending = []PendingEvaluation{{AgentName: "writer", MutationType: MutationUpdateAgent, Timestamp: time.Now().UnixMilli(), CommitHash: hash}}

	q.EvaluatePendingImprovements()
	assert.Len(t, q.pending, 1, "entry should still be pending without enough actions")
}

func TestEvaluatePendingImprovements_HarmfulRollsBack(t *testing.T) {
	g := newTestGenome(t)
	require.NoError(t, g.AddAgent(genome.AgentSpec{Name: "writer", SystemPrompt: "before"}))

	spec, _ := g.GetAgent("writer")
	spec.SystemPrompt = "after"
	require.NoError(t, g.UpdateAgent(spec))
	mutationHash, err := g.LastCommitHash()
	require.NoError(t, err)

	m := newTestMetrics(t)
	ts := time.Now().UnixMilli()
	for i := 0; i < 10; i++ {
		m.RecordAction("writer")
		m.RecordStumble("writer", "error")
	}
	// Give the fire-and-forget disk appends a moment to land.
	time.Sleep(50 * time.Millisecond)

	q := New(Config{Genome: g, Metrics: m})
	q.pending = []PendingEvaluation{{AgentName: "writer", MutationType: MutationUpdateAgent, Timestamp: ts, CommitHash: mutationHash}}

	q.EvaluatePendingImprovements()
	assert.Empty(t, q.pending)

	spec, _ = g.GetAgent("writer")
	assert.Equal(t, "before", spec.SystemPrompt, "harmful mutation should have been rolled back")
}
