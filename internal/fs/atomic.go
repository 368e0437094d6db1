package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// tmpSuffix marks in-progress writes.
const tmpSuffix = ".tmp"

// WriteFileAtomic writes a file through write, syncs it and renames it into
// place, so readers never observe a partial file. On any failure the
// temporary file is removed and the previous content at path is untouched.
func WriteFileAtomic(fsys FileSystem, path string, perm os.FileMode, write func(w io.Writer) error) (err error) {
	if fsys == nil {
		fsys = Default
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := path + tmpSuffix
	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmp)
		}
	}()

	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return fsys.Rename(tmp, path)
}

// ReadFile reads a whole file through fsys.
func ReadFile(fsys FileSystem, path string) ([]byte, error) {
	if fsys == nil {
		fsys = Default
	}
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, info.Size())
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}
