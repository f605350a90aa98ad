package fsutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.spec")

	require.NoError(t, WriteFileAtomic(p, []byte("one"), 0o640))
	require.NoError(t, WriteFileAtomic(p, []byte("two"), 0o640))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	fi, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), fi.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteAtomicFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bundle.zip")
	require.NoError(t, WriteFileAtomic(p, []byte("previous"), 0o640))

	err := WriteAtomic(p, 0o640, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("disk full")
	})
	require.Error(t, err)

	data, rerr := os.ReadFile(p)
	require.NoError(t, rerr)
	assert.Equal(t, "previous", string(data))

	entries, rerr := os.ReadDir(dir)
	require.NoError(t, rerr)
	assert.Len(t, entries, 1)
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x.aut")
	assert.NoError(t, RemoveIfExists(p))
	require.NoError(t, os.WriteFile(p, nil, 0o640))
	assert.True(t, IsRegularFile(p))
	assert.NoError(t, RemoveIfExists(p))
	assert.False(t, IsRegularFile(p))
	assert.False(t, IsRegularFile(dir))
}
