//go:build !windows

package workspace

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/friconhq/fricon/internal/ferr"
)

// lockHandle holds the open file descriptor backing a POSIX advisory lock.
type lockHandle struct {
	file *os.File
}

// acquireLock takes a non-blocking exclusive advisory lock (flock) on path,
// creating the file if necessary. A lock already held by another process
// surfaces as WorkspaceLocked.
func acquireLock(path string) (*lockHandle, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, ferr.Wrapf(ferr.CodeStorage, err, "open lock file %s", path)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ferr.Newf(ferr.CodeWorkspaceLocked, "workspace lock %s already held", path)
		}
		return nil, ferr.Wrapf(ferr.CodeStorage, err, "acquire lock %s", path)
	}

	return &lockHandle{file: f}, nil
}

func (l *lockHandle) release() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return ferr.Wrapf(ferr.CodeStorage, err, "release lock")
	}
	return l.file.Close()
}
