package primitive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPatch_AddFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "new.txt")

	patch := "*** Begin Patch\n" +
		"*** Add File: " + target + "\n" +
		"+line one\n" +
		"+line two\n" +
		"*** End Patch"

	p := ApplyPatch{}
	result, err := p.Execute(context.Background(), map[string]any{"patch": patch}, Env{})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", string(data))
}

func TestApplyPatch_UpdateFileWithContext(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "existing.txt")
	require.NoError(t, os.WriteFile(target, []byte("alpha\nbeta\ngamma\n"), 0o644))

	patch := "*** Begin Patch\n" +
		"*** Update File: " + target + "\n" +
		"@@\n" +
		" alpha\n" +
		"-beta\n" +
		"+BETA\n" +
		" gamma\n" +
		"*** End Patch"

	p := ApplyPatch{}
	result, err := p.Execute(context.Background(), map[string]any{"patch": patch}, Env{})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "alpha\nBETA\ngamma\n", string(data))
}

func TestApplyPatch_UpdateFileMissingContextFails(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "existing.txt")
	require.NoError(t, os.WriteFile(target, []byte("alpha\nbeta\n"), 0o644))

	patch := "*** Begin Patch\n" +
		"*** Update File: " + target + "\n" +
		"@@\n" +
		" nope\n" +
		"-beta\n" +
		"+BETA\n" +
		"*** End Patch"

	p := ApplyPatch{}
	result, err := p.Execute(context.Background(), map[string]any{"patch": patch}, Env{})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestApplyPatch_DeleteFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(target, []byte("bye"), 0o644))

	patch := "*** Begin Patch\n" +
		"*** Delete File: " + target + "\n" +
		"*** End Patch"

	p := ApplyPatch{}
	result, err := p.Execute(context.Background(), map[string]any{"patch": patch}, Env{})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestApplyPatch_UpdateFileWithMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "old.txt")
	dst := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(src, []byte("alpha\nbeta\n"), 0o644))

	patch := "*** Begin Patch\n" +
		"*** Update File: " + src + "\n" +
		"*** Move to: " + dst + "\n" +
		"@@\n" +
		" alpha\n" +
		"-beta\n" +
		"+BETA\n" +
		"*** End Patch"

	p := ApplyPatch{}
	result, err := p.Execute(context.Background(), map[string]any{"patch": patch}, Env{})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "alpha\nBETA\n", string(data))
}

func TestApplyPatch_MissingEnvelopeFails(t *testing.T) {
	p := ApplyPatch{}
	result, err := p.Execute(context.Background(), map[string]any{"patch": "not a patch"}, Env{})
	require.NoError(t, err)
	assert.False(t, result.Success)
}
