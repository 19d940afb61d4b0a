package lockmgr

import (
	"os"

	"golang.org/x/sys/unix"
)

// flock applies a flock(2) operation and retries on EINTR
func flock(f *os.File, how int) error {
	for {
		err := unix.Flock(int(f.Fd()), how)
		if err != unix.EINTR {
			return err
		}
	}
}

// flockOp maps a target state to the flock(2) operation
func flockOp(to LockState, wait bool) int {
	var how int
	switch to {
	case Shared:
		how = unix.LOCK_SH
	case Exclusive:
		how = unix.LOCK_EX
	default:
		return unix.LOCK_UN
	}
	if !wait {
		how |= unix.LOCK_NB
	}
	return how
}
