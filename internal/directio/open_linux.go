//go:build linux

package directio

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func openFile(path string) (*os.File, bool, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECT|unix.O_CLOEXEC, 0)
	if err == nil {
		return os.NewFile(uintptr(fd), path), true, nil
	}
	if !errors.Is(err, unix.EINVAL) {
		return nil, false, &os.PathError{Op: "open", Path: path, Err: err}
	}

	fd, err = unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, false, &os.PathError{Op: "open", Path: path, Err: err}
	}
	// Postings reads jump around; kernel readahead would only pollute the cache.
	_ = unix.Fadvise(fd, 0, 0, unix.FADV_RANDOM)
	return os.NewFile(uintptr(fd), path), false, nil
}
