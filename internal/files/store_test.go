package files_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickward/livepad/internal/files"
)

func setupStore(t *testing.T, crypt *files.EncryptionManager) (*files.Store, *files.RootManager) {
	t.Helper()

	rm := setupRootManager(t)
	return files.NewStore(rm, crypt), rm
}

func TestStore_Initialize(t *testing.T) {
	t.Parallel()
	store, rm := setupStore(t, nil)

	require.NoError(t, store.Initialize())
	assert.True(t, rm.FileExists("welcome.md"))

	// A second call leaves existing documents alone.
	require.NoError(t, rm.WriteString("welcome.md", "changed\n"))
	require.NoError(t, store.Initialize())
	content, err := rm.ReadFile("welcome.md")
	require.NoError(t, err)
	assert.Equal(t, "changed\n", string(content))
}

func TestStore_List(t *testing.T) {
	t.Parallel()
	store, rm := setupStore(t, nil)
	require.NoError(t, rm.WriteString("zeta.md", "z"))
	require.NoError(t, rm.WriteString("notes/road-runner.md", "r"))
	require.NoError(t, rm.WriteString("notes/readme.txt", "x"))
	require.NoError(t, rm.WriteString(".hidden.md", "h"))

	docs, err := store.List()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "notes/road-runner", docs[0].ID)
	assert.Equal(t, "Notes/Road Runner", docs[0].Title)
	assert.Equal(t, "zeta", docs[1].ID)
	assert.False(t, docs[1].ModTime.IsZero())
}

func TestStore_Get(t *testing.T) {
	t.Parallel()
	store, rm := setupStore(t, nil)
	require.NoError(t, rm.WriteString("inbox.md", "\n\n  indented\n"))

	doc, err := store.Get("inbox")
	require.NoError(t, err)
	assert.Equal(t, "inbox.md", doc.Info.Path)

	content, err := doc.Content()
	require.NoError(t, err)
	assert.Equal(t, "\n\n  indented\n", content)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, files.ErrDocumentNotFound)

	for _, id := range []string{"", "../etc/passwd", "/abs", "a/../b"} {
		_, err = store.Get(id)
		assert.ErrorIs(t, err, files.ErrInvalidID, "id %q", id)
	}
}

func TestDocument_Save(t *testing.T) {
	t.Parallel()
	store, rm := setupStore(t, nil)

	doc, err := store.Create("drafts/new", "")
	require.NoError(t, err)

	require.NoError(t, doc.Save("\n# Title\r\nbody"))

	raw, err := rm.ReadFile("drafts/new.md")
	require.NoError(t, err)
	assert.Equal(t, "\n# Title\nbody\n", string(raw))

	// Create on an existing document keeps its content.
	again, err := store.Create("drafts/new", "ignored")
	require.NoError(t, err)
	content, err := again.Content()
	require.NoError(t, err)
	assert.Equal(t, "\n# Title\nbody\n", content)
}

func TestDocumentInfo_Breadcrumbs(t *testing.T) {
	t.Parallel()
	store, rm := setupStore(t, nil)
	require.NoError(t, rm.WriteString("projects/road-runner/plan.md", "x"))

	doc, err := store.Get("projects/road-runner/plan")
	require.NoError(t, err)

	assert.Equal(t, []files.Breadcrumb{
		{Name: "Projects"},
		{Name: "Road Runner"},
		{Name: "Plan", IsLast: true},
	}, doc.Info.Breadcrumbs())
}
