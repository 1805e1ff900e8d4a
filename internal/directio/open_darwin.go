//go:build darwin

package directio

import (
	"os"

	"golang.org/x/sys/unix"
)

func openFile(path string) (*os.File, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	if _, err := unix.FcntlInt(f.Fd(), unix.F_NOCACHE, 1); err != nil {
		return f, false, nil
	}
	return f, true, nil
}
