//go:build windows

package workspace

import (
	"os"

	"golang.org/x/sys/windows"

	"github.com/friconhq/fricon/internal/ferr"
)

// lockHandle holds the open file handle backing a Windows exclusive lock.
// The lock file is a plain file under the workspace root.
type lockHandle struct {
	file *os.File
}

func acquireLock(path string) (*lockHandle, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, ferr.Wrapf(ferr.CodeStorage, err, "open lock file %s", path)
	}

	ol := new(windows.Overlapped)
	err = windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, ol,
	)
	if err != nil {
		f.Close()
		if err == windows.ERROR_LOCK_VIOLATION {
			return nil, ferr.Newf(ferr.CodeWorkspaceLocked, "workspace lock %s already held", path)
		}
		return nil, ferr.Wrapf(ferr.CodeStorage, err, "acquire lock %s", path)
	}

	return &lockHandle{file: f}, nil
}

func (l *lockHandle) release() error {
	ol := new(windows.Overlapped)
	if err := windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, ol); err != nil {
		l.file.Close()
		return ferr.Wrapf(ferr.CodeStorage, err, "release lock")
	}
	return l.file.Close()
}
