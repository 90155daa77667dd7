//go:build !unix

package filelock

import "os"

func tryLock(f *os.File, mode Mode) (bool, error) {
	return false, ErrUnsupported
}

func unlock(f *os.File) error {
	return nil
}
