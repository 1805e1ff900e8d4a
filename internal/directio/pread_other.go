//go:build !unix

package directio

import "os"

func pread(f *os.File, p []byte, off int64) (int, error) {
	return f.ReadAt(p, off)
}
