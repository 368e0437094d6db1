//go:build !unix

package roarguard

import (
	"strconv"
	"syscall"
)

var errnoNames = map[syscall.Errno]string{
	syscall.ENOENT:  "ENOENT",
	syscall.EEXIST:  "EEXIST",
	syscall.EACCES:  "EACCES",
	syscall.EISDIR:  "EISDIR",
	syscall.ENOTDIR: "ENOTDIR",
	syscall.ENOSPC:  "ENOSPC",
	syscall.EIO:     "EIO",
	syscall.EINVAL:  "EINVAL",
}

func errnoName(errno syscall.Errno) string {
	if name, ok := errnoNames[errno]; ok {
		return name
	}
	return "E" + strconv.Itoa(int(errno))
}
