package roarguard

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
)

// asIOError normalizes os-level failures. It returns nil for anything else.
func asIOError(err error) *IOError {
	out := &IOError{cause: err}

	var (
		inner   error
		pathErr *fs.PathError
		linkErr *os.LinkError
		sysErr  *os.SyscallError
		errno   syscall.Errno
	)
	switch {
	case errors.As(err, &pathErr):
		out.Syscall, out.Path, inner = pathErr.Op, pathErr.Path, pathErr.Err
	case errors.As(err, &linkErr):
		out.Syscall, out.Path, inner = linkErr.Op, linkErr.New, linkErr.Err
	case errors.As(err, &sysErr):
		out.Syscall, inner = sysErr.Syscall, sysErr.Err
	case errors.As(err, &errno):
		inner = errno
	default:
		return nil
	}

	switch {
	case inner == nil:
		out.Message = err.Error()
	case errors.As(inner, &errno):
		out.Code = errnoName(errno)
		out.Message = errno.Error()
	default:
		out.Message = inner.Error()
	}
	return out
}

// ioError wraps err as an IOError for path, filling in what the OS error lacks.
func ioError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if ioe := asIOError(err); ioe != nil {
		if ioe.Path == "" {
			ioe.Path = path
		}
		if ioe.Syscall == "" {
			ioe.Syscall = op
		}
		return ioe
	}
	return translateError(err)
}
