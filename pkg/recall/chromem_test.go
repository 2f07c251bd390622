package recall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemBackend_UpsertThenSearchReturnsClosestMatch(t *testing.T) {
	b, err := NewChromemBackend(ChromemConfig{})
	require.NoError(t, err)
	assert.Equal(t, "chromem", b.Name())

	ctx := context.Background()
	require.NoError(t, b.Upsert(ctx, "close", []float32{1, 0, 0}, map[string]any{"tag": "a"}))
	require.NoError(t, b.Upsert(ctx, "far", []float32{0, 1, 0}, map[string]any{"tag": "b"}))

	matches, err := b.Search(ctx, []float32{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "close", matches[0].ID)
}

func TestChromemBackend_SearchOnEmptyCollectionReturnsNoMatches(t *testing.T) {
	b, err := NewChromemBackend(ChromemConfig{Collection: "empty"})
	require.NoError(t, err)

	matches, err := b.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestChromemBackend_PersistentDBSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	b1, err := NewChromemBackend(ChromemConfig{PersistPath: dir, Collection: "durable"})
	require.NoError(t, err)
	require.NoError(t, b1.Upsert(context.Background(), "mem1", []float32{1, 0}, nil))

	b2, err := NewChromemBackend(ChromemConfig{PersistPath: dir, Collection: "durable"})
	require.NoError(t, err)

	matches, err := b2.Search(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "mem1", matches[0].ID)
}
