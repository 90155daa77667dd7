//go:build unix

package filelock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func tryLock(f *os.File, mode Mode) (bool, error) {
	how := unix.LOCK_SH
	if mode == Exclusive {
		how = unix.LOCK_EX
	}
	conn, err := f.SyscallConn()
	if err != nil {
		return false, fmt.Errorf("filelock: %s: %w", f.Name(), err)
	}
	var flockErr error
	if err := conn.Control(func(fd uintptr) {
		for {
			flockErr = unix.Flock(int(fd), how|unix.LOCK_NB)
			if !errors.Is(flockErr, unix.EINTR) {
				return
			}
		}
	}); err != nil {
		return false, fmt.Errorf("filelock: %s: %w", f.Name(), err)
	}
	if flockErr == nil {
		return true, nil
	}
	if errors.Is(flockErr, unix.EWOULDBLOCK) {
		return false, nil
	}
	return false, fmt.Errorf("filelock: flock %s: %w", f.Name(), flockErr)
}

func unlock(f *os.File) error {
	conn, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var flockErr error
	if err := conn.Control(func(fd uintptr) {
		flockErr = unix.Flock(int(fd), unix.LOCK_UN)
	}); err != nil {
		return err
	}
	return flockErr
}
