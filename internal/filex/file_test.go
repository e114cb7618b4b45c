package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNestedDirectory(t *testing.T) {
	tmp := t.TempDir()
	want := filepath.Join(tmp, "scratch", "ingest")

	got, err := EnsureDir(want)
	require.NoError(t, err)
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scratch")

	first, err := EnsureDir(dir)
	require.NoError(t, err)
	second, err := EnsureDir(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDir_EmptyUsesSystemTemp(t *testing.T) {
	got, err := EnsureDir("")
	require.NoError(t, err)
	want, err := filepath.Abs(os.TempDir())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scratch")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o660))

	_, err := EnsureDir(path)
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestWriteTemp_And_Remove(t *testing.T) {
	dir := t.TempDir()

	p, err := WriteTemp(dir, "in-*.bin", []byte("audio"))
	require.NoError(t, err)
	require.Equal(t, dir, filepath.Dir(p))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, []byte("audio"), b)

	require.NoError(t, Remove(p))
	_, err = os.Stat(p)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, Remove(p), "second remove is a no-op")
	require.NoError(t, Remove(""))
}

func TestReserveTemp_CreatesEmptyFile(t *testing.T) {
	dir := t.TempDir()

	p, err := ReserveTemp(dir, "out-*.mp3")
	require.NoError(t, err)
	fi, err := os.Stat(p)
	require.NoError(t, err)
	require.Zero(t, fi.Size())
}

func TestWriteTemp_MissingDir(t *testing.T) {
	_, err := WriteTemp(filepath.Join(t.TempDir(), "nope"), "x-*", []byte("a"))
	require.Error(t, err)
}
