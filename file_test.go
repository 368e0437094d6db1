package roarguard

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roarguard/codec"
	"github.com/hupe1980/roarguard/internal/fs"
)

func TestWriteReadFile(t *testing.T) {
	dir := t.TempDir()
	b := New(Values(1, 2, 3), Range(1<<20, 1<<20+5000))

	for _, f := range binaryFormats() {
		path := filepath.Join(dir, "nested", f.String())
		require.NoError(t, WriteFile(path, b, f))

		info, err := os.Stat(path)
		require.NoError(t, err)
		n, err := ExactSize(b, f)
		require.NoError(t, err)
		assert.Equal(t, int64(n), info.Size(), f.String())

		got, err := ReadFile(path, f)
		require.NoError(t, err)
		assert.True(t, got.Equals(b), f.String())
	}
}

func TestReadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.bin")
	_, err := ReadFile(path, codec.Portable)

	var ioe *IOError
	require.ErrorAs(t, err, &ioe)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, "ENOENT", ioe.Code)
	assert.Equal(t, "open", ioe.Syscall)
	assert.Equal(t, path, ioe.Path)
	assert.Contains(t, ioe.Error(), "ENOENT")
}

func TestReadFile_TextFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.csv")
	require.NoError(t, WriteFile(path, New(Values(1, 2)), codec.CSV))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1,2", string(data))

	_, err = ReadFile(path, codec.CSV)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWriteFile_Fault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bitmap.bin")

	fsys := fs.NewFaultyFS(nil)
	fsys.AddRule("bitmap", fs.Fault{FailAfterBytes: 0, Errno: syscall.ENOSPC})

	err := writeFile(fsys, path, New(Values(1, 2, 3)), codec.Portable, nil)
	var ioe *IOError
	require.ErrorAs(t, err, &ioe)
	assert.Equal(t, "ENOSPC", ioe.Code)
	assert.Equal(t, "write", ioe.Syscall)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial or temporary file is left behind")
}

func TestWriteFile_RenameFault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bitmap.bin")
	require.NoError(t, WriteFile(path, New(Values(1)), codec.Portable))

	fsys := fs.NewFaultyFS(nil)
	fsys.AddRule("bitmap", fs.Fault{FailAfterBytes: -1, FailOnRename: true})

	err := writeFile(fsys, path, New(Values(2)), codec.Portable, nil)
	assert.ErrorIs(t, err, ErrIO)

	got, err := ReadFile(path, codec.Portable)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, got.ToArray())
}
