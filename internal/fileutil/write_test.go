package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomicCreatesAndReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.json")

	require.NoError(t, WriteAtomic(path, []byte("one"), 0644))
	require.NoError(t, WriteAtomic(path, []byte("two"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	assertNoTemps(t, filepath.Dir(path))
}

func TestWriteAtomicFailedRenameKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, WriteAtomic(path, []byte("original"), 0644))

	w := AtomicWriter{Rename: func(string, string) error { return errors.New("power cut") }}
	err := w.WriteFile(path, []byte("replacement"), 0644)
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assertNoTemps(t, dir)
}

func TestMarshalIndentNoHTMLEscape(t *testing.T) {
	data, err := MarshalIndent(map[string]string{"url": "https://x.io/?a=1&b=<2>"})
	require.NoError(t, err)
	assert.Contains(t, string(data), "a=1&b=<2>")
	assert.Equal(t, byte('\n'), data[len(data)-1])
}

func assertNoTemps(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp files left behind")
}
