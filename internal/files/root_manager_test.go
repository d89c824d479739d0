package files_test

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickward/livepad/internal/files"
)

func setupRootManager(t *testing.T) *files.RootManager {
	t.Helper()

	rm, err := files.NewRootManager(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	return rm
}

func TestRootManager_WriteAndRead(t *testing.T) {
	t.Parallel()
	rm := setupRootManager(t)

	require.NoError(t, rm.WriteString("notes/deep/todo.md", "# Todo\n"))
	assert.True(t, rm.FileExists("notes/deep/todo.md"))

	content, err := rm.ReadFile("notes/deep/todo.md")
	require.NoError(t, err)
	assert.Equal(t, "# Todo\n", string(content))

	_, err = rm.ReadFile("missing.md")
	assert.Error(t, err)
}

func TestRootManager_RejectsEscapes(t *testing.T) {
	t.Parallel()
	rm := setupRootManager(t)

	_, err := rm.ReadFile("../outside.md")
	assert.Error(t, err)

	err = rm.WriteString("../outside.md", "nope")
	assert.Error(t, err)
}

func TestRootManager_Scan(t *testing.T) {
	t.Parallel()
	rm := setupRootManager(t)
	require.NoError(t, rm.WriteString("a.md", "a"))
	require.NoError(t, rm.WriteString("sub/b.md", "b"))
	require.NoError(t, rm.WriteString("sub/c.txt", "c"))

	results, err := rm.Scan(".", func(path string, d fs.DirEntry) bool {
		return !d.IsDir() && filepath.Ext(path) == ".md"
	})
	require.NoError(t, err)

	var paths []string
	for _, r := range results {
		paths = append(paths, r.Path)
	}
	assert.ElementsMatch(t, []string{"a.md", "sub/b.md"}, paths)
}
