//go:build !linux && !darwin

package directio

import "os"

func openFile(path string) (*os.File, bool, error) {
	f, err := os.Open(path)
	return f, false, err
}
