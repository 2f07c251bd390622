package primitive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-radiant-inc/sprout/pkg/genome"
)

func TestSaveTool_RequiresGenome(t *testing.T) {
	s := SaveTool{}
	result, err := s.Execute(context.Background(), map[string]any{
		"name": "t", "interpreter": "sh", "script": "echo hi",
	}, Env{})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestSaveTool_PersistsToGenomeWorkspace(t *testing.T) {
	dir := t.TempDir()
	store := genome.Open(dir)
	require.NoError(t, store.Init())

	s := SaveTool{}
	result, err := s.Execute(context.Background(), map[string]any{
		"name": "greet", "interpreter": "python3", "script": "print('hi')",
	}, Env{AgentName: "root", Genome: store})
	require.NoError(t, err)
	assert.True(t, result.Success)

	tools, err := store.LoadAgentTools("root")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "greet", tools[0].Name)
}

func TestSaveFile_PersistsToGenomeWorkspace(t *testing.T) {
	dir := t.TempDir()
	store := genome.Open(dir)
	require.NoError(t, store.Init())

	s := SaveFile{}
	result, err := s.Execute(context.Background(), map[string]any{
		"name": "notes.txt", "content": "hello",
	}, Env{AgentName: "root", Genome: store})
	require.NoError(t, err)
	assert.True(t, result.Success)

	files, err := store.ListAgentFiles("root")
	require.NoError(t, err)
	assert.Contains(t, files, "notes.txt")
}
