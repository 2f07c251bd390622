package recall

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-radiant-inc/sprout/pkg/genome"
)

func newTestGenome(t *testing.T) *genome.Store {
	t.Helper()
	s := genome.Open(t.TempDir())
	require.NoError(t, s.Init())
	return s
}

func TestRecall_KeywordRanking(t *testing.T) {
	g := newTestGenome(t)
	require.NoError(t, g.AddAgent(genome.AgentSpec{Name: "root"}))
	require.NoError(t, g.AddAgent(genome.AgentSpec{Name: "coder"}))

	require.NoError(t, g.AddMemory(genome.Memory{
		ID: "m1", Content: "writing python scripts is tricky with indentation",
		Confidence: 0.9, LastUsedAt: time.Now().UnixMilli(),
	}))
	require.NoError(t, g.AddMemory(genome.Memory{
		ID: "m2", Content: "unrelated note about networking",
		Confidence: 0.9, LastUsedAt: time.Now().UnixMilli(),
	}))
	require.NoError(t, g.AddRoutingRule(genome.RoutingRule{ID: "r1", Condition: "python", Preference: "coder", Strength: 0.8}))

	r := New(g)
	result, err := r.Recall(context.Background(), "write a python script", 5)
	require.NoError(t, err)

	require.Len(t, result.Memories, 1)
	assert.Equal(t, "m1", result.Memories[0].ID)
	require.Len(t, result.RoutingHints, 1)
	assert.Equal(t, "coder", result.RoutingHints[0].Preference)
	assert.ElementsMatch(t, []string{"root", "coder"}, result.Agents)
}

func TestRecall_TopKLimitsResults(t *testing.T) {
	g := newTestGenome(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, g.AddMemory(genome.Memory{
			ID: string(rune('a' + i)), Content: "goal keyword appears here",
			Confidence: 0.5, LastUsedAt: time.Now().UnixMilli(),
		}))
	}

	r := New(g)
	result, err := r.Recall(context.Background(), "goal", 3)
	require.NoError(t, err)
	assert.Len(t, result.Memories, 3)
}

func TestRecall_NoMatchReturnsEmpty(t *testing.T) {
	g := newTestGenome(t)
	require.NoError(t, g.AddMemory(genome.Memory{ID: "m1", Content: "zzz", Confidence: 0.9, LastUsedAt: time.Now().UnixMilli()}))

	r := New(g)
	result, err := r.Recall(context.Background(), "totally unrelated query", 5)
	require.NoError(t, err)
	assert.Empty(t, result.Memories)
}

func TestRecall_MarksMemoriesUsed(t *testing.T) {
	g := newTestGenome(t)
	require.NoError(t, g.AddMemory(genome.Memory{ID: "m1", Content: "deploy the service", Confidence: 0.9, LastUsedAt: time.Now().UnixMilli()}))

	r := New(g)
	_, err := r.Recall(context.Background(), "deploy", 5)
	require.NoError(t, err)

	mems := g.Memories()
	require.Len(t, mems, 1)
	assert.Equal(t, 1, mems[0].UseCount)
}
