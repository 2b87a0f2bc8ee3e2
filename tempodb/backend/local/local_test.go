package local_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nimbusdata/hdfssink/tempodb/backend/local"
	"github.com/nimbusdata/hdfssink/tempodb/wal"
)

func newBackend(t *testing.T) *local.Backend {
	t.Helper()
	root := t.TempDir()
	b, err := local.New(&local.Config{Path: root}, &wal.Config{})
	require.NoError(t, err)
	return b
}

func TestBackend_New_RequiresPath(t *testing.T) {
	_, err := local.New(&local.Config{}, &wal.Config{})
	require.Error(t, err)
}

func TestBackend_CreateAndExists(t *testing.T) {
	b := newBackend(t)

	ok, err := b.Exists("topics/orders")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.Create("topics/orders"))

	ok, err = b.Exists("topics/orders")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBackend_Commit_RenamesAtomicallyAndCreatesParent(t *testing.T) {
	b := newBackend(t)
	root := b.URL()[len("file://"):]

	require.NoError(t, os.MkdirAll(filepath.Join(root, "topics/orders/+tmp"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "topics/orders/+tmp/temp1"), []byte("x"), 0o644))

	require.NoError(t, b.Commit("topics/orders/+tmp/temp1", "topics/orders/committed1"))

	ok, err := b.Exists("topics/orders/committed1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Exists("topics/orders/+tmp/temp1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBackend_Commit_MissingSourceIsAnError(t *testing.T) {
	b := newBackend(t)
	err := b.Commit("does/not/exist", "topics/orders/committed1")
	require.Error(t, err)
}

func TestBackend_DeleteRemovesFileOrDirectory(t *testing.T) {
	b := newBackend(t)
	require.NoError(t, b.Create("topics/orders"))
	require.NoError(t, b.Delete("topics/orders"))

	ok, err := b.Exists("topics/orders")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBackend_List_ReturnsBaseNames(t *testing.T) {
	b := newBackend(t)
	root := b.URL()[len("file://"):]

	require.NoError(t, os.MkdirAll(filepath.Join(root, "topics/orders/p=x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "topics/orders/file1"), []byte("x"), 0o644))

	names, err := b.List("topics/orders")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"p=x", "file1"}, names)
}

func TestBackend_List_MissingDirectoryIsEmptyNotError(t *testing.T) {
	b := newBackend(t)
	names, err := b.List("topics/does-not-exist")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestBackend_WAL_RootsUnderBackendPath(t *testing.T) {
	b := newBackend(t)
	w, err := b.WAL("logs/orders", 0)
	require.NoError(t, err)
	defer w.Close()

	root := b.URL()[len("file://"):]
	require.Equal(t, filepath.Join(root, "logs/orders", "0", "log"), w.GetLogFile())
}

func TestBackend_WAL_CommitClosureDelegatesToBackend(t *testing.T) {
	b := newBackend(t)
	root := b.URL()[len("file://"):]

	require.NoError(t, os.MkdirAll(filepath.Join(root, "topics/orders/+tmp"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "topics/orders/+tmp/temp1"), []byte("x"), 0o644))

	w, err := b.WAL("logs/orders", 0)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append("__begin__", ""))
	require.NoError(t, w.Append("topics/orders/+tmp/temp1", "topics/orders/committed1"))
	require.NoError(t, w.Append("__end__", ""))
	require.NoError(t, w.Apply())

	ok, err := b.Exists("topics/orders/committed1")
	require.NoError(t, err)
	require.True(t, ok)
}
