package roarguard

import (
	"io"
	"os"
	"runtime"

	"github.com/hupe1980/roarguard/codec"
	"github.com/hupe1980/roarguard/internal/fs"
)

const filePerm os.FileMode = 0o644

// WriteFile writes b to path in format f. The file is written next to path
// and renamed into place, so a failed write never leaves a partial file.
// Failures are returned as *IOError.
func WriteFile(path string, b *Bitmap, f codec.Format) error {
	return writeFile(fs.Default, path, b, f, nil)
}

// ReadFile reads and decodes a bitmap file written by WriteFile.
func ReadFile(path string, f codec.Format) (*Bitmap, error) {
	return readFile(fs.Default, path, f, nil)
}

// writeFile streams b through wrap, if set, into path on fsys.
func writeFile(fsys fs.FileSystem, path string, b *Bitmap, f codec.Format, wrap func(io.Writer) io.Writer) error {
	if _, err := codec.Lookup(f); err != nil {
		return translateError(err)
	}
	err := fs.WriteFileAtomic(fsys, path, filePerm, func(w io.Writer) error {
		if wrap != nil {
			w = wrap(w)
		}
		_, err := codec.WriteTo(w, engineOf(b), f)
		runtime.KeepAlive(b)
		return err
	})
	return ioError("write", path, err)
}

func readFile(fsys fs.FileSystem, path string, f codec.Format, wrap func(io.Reader) io.Reader) (*Bitmap, error) {
	if _, err := codec.Lookup(f); err != nil {
		return nil, translateError(err)
	}
	var (
		data []byte
		err  error
	)
	if wrap == nil {
		data, err = fs.ReadFile(fsys, path)
	} else {
		data, err = readAllFrom(fsys, path, wrap)
	}
	if err != nil {
		return nil, ioError("read", path, err)
	}
	return Deserialize(data, f)
}

func readAllFrom(fsys fs.FileSystem, path string, wrap func(io.Reader) io.Reader) ([]byte, error) {
	file, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(wrap(file))
}

// FileSystem is the file system abstraction offloaded file operations use.
type FileSystem = fs.FileSystem

// File is an open file of a FileSystem.
type File = fs.File
