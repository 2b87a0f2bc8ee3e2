package wal_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nimbusdata/hdfssink/tempodb/wal"
)

const (
	beginMarker = "__begin__"
	endMarker   = "__end__"
)

func newCommitRecorder(dir string) (commit func(src, dst string) error, commits *[][2]string) {
	var calls [][2]string
	commit = func(src, dst string) error {
		full := func(p string) string { return filepath.Join(dir, p) }
		if err := os.Rename(full(src), full(dst)); err != nil {
			return err
		}
		calls = append(calls, [2]string{src, dst})
		return nil
	}
	return commit, &calls
}

func TestFileWAL_AppendAndApply_ReplaysCompleteBracket(t *testing.T) {
	dir := t.TempDir()
	commit, calls := newCommitRecorder(dir)

	w, err := wal.New(&wal.Config{Filepath: dir}, 0, commit)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "temp1"), []byte("data"), 0o644))

	require.NoError(t, w.Append(beginMarker, ""))
	require.NoError(t, w.Append("temp1", "committed1"))
	require.NoError(t, w.Append(endMarker, ""))

	require.NoError(t, w.Apply())

	require.Len(t, *calls, 1)
	require.Equal(t, [2]string{"temp1", "committed1"}, (*calls)[0])
	require.FileExists(t, filepath.Join(dir, "committed1"))
	require.NoFileExists(t, filepath.Join(dir, "temp1"))
}

func TestFileWAL_Apply_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	commit, calls := newCommitRecorder(dir)

	w, err := wal.New(&wal.Config{Filepath: dir}, 0, commit)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "temp1"), []byte("data"), 0o644))
	require.NoError(t, w.Append(beginMarker, ""))
	require.NoError(t, w.Append("temp1", "committed1"))
	require.NoError(t, w.Append(endMarker, ""))

	require.NoError(t, w.Apply())
	require.NoError(t, w.Apply(), "a second Apply against an already-renamed source must be a no-op, not an error")
	require.Len(t, *calls, 1)
}

func TestFileWAL_Apply_IncompleteBracketIsNoop(t *testing.T) {
	dir := t.TempDir()
	commit, calls := newCommitRecorder(dir)

	w, err := wal.New(&wal.Config{Filepath: dir}, 0, commit)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "temp1"), []byte("data"), 0o644))
	require.NoError(t, w.Append(beginMarker, ""))
	require.NoError(t, w.Append("temp1", "committed1"))
	// no end marker: the bracket is interrupted.

	require.NoError(t, w.Apply())
	require.Empty(t, *calls)
	require.FileExists(t, filepath.Join(dir, "temp1"))
}

func TestFileWAL_Truncate_DiscardsEntries(t *testing.T) {
	dir := t.TempDir()
	commit, calls := newCommitRecorder(dir)

	w, err := wal.New(&wal.Config{Filepath: dir}, 0, commit)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "temp1"), []byte("data"), 0o644))
	require.NoError(t, w.Append(beginMarker, ""))
	require.NoError(t, w.Append("temp1", "committed1"))
	require.NoError(t, w.Append(endMarker, ""))

	require.NoError(t, w.Truncate())
	require.NoError(t, w.Apply())
	require.Empty(t, *calls, "truncate must discard entries before the next apply")
}

func TestFileWAL_SurvivesReopenAcrossProcesses(t *testing.T) {
	dir := t.TempDir()
	commit, calls := newCommitRecorder(dir)

	w1, err := wal.New(&wal.Config{Filepath: dir}, 3, commit)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "temp1"), []byte("data"), 0o644))
	require.NoError(t, w1.Append(beginMarker, ""))
	require.NoError(t, w1.Append("temp1", "committed1"))
	require.NoError(t, w1.Append(endMarker, ""))
	require.NoError(t, w1.Close())

	w2, err := wal.New(&wal.Config{Filepath: dir}, 3, commit)
	require.NoError(t, err)
	defer w2.Close()

	require.NoError(t, w2.Apply())
	require.Len(t, *calls, 1)
}

func TestFileWAL_New_RequiresFilepath(t *testing.T) {
	_, err := wal.New(&wal.Config{}, 0, func(string, string) error { return nil })
	require.Error(t, err)
}

func TestFileWAL_GetLogFile_IsUnderPartitionDirectory(t *testing.T) {
	dir := t.TempDir()
	w, err := wal.New(&wal.Config{Filepath: dir}, 7, func(string, string) error { return nil })
	require.NoError(t, err)
	defer w.Close()

	require.Equal(t, filepath.Join(dir, "7", "log"), w.GetLogFile())
}
