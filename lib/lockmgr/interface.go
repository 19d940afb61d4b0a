package lockmgr

import (
	"os"

	"github.com/pkg/errors"
)

// LockState is the lock a guard currently holds on its file
type LockState int

const (
	Unlocked LockState = iota
	Shared
	Exclusive
)

func (s LockState) String() string {
	switch s {
	case Unlocked:
		return "unlocked"
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return "invalid"
	}
}

// ErrWouldBlock is returned by a non-blocking transition if another open
// file description holds a conflicting lock
var ErrWouldBlock = errors.New("lock is held by another owner")

// ErrClosed is returned when a closed guard is used
var ErrClosed = errors.New("file lock is closed")

// IFileLock is a scoped advisory lock on an open file.
//
// The lock belongs to the open file description (flock(2)), so two guards on
// the same path exclude each other even inside one process.
type IFileLock interface {
	// State returns the lock currently held
	State() LockState
	// Transition moves to the given state. The same state is a no-op and
	// Unlocked always succeeds. Shared and exclusive convert into each
	// other. If wait is false a conflicting lock yields ErrWouldBlock.
	// A failed conversion leaves the guard unlocked.
	Transition(to LockState, wait bool) error
	// File returns the underlying file
	File() *os.File
	// Path returns the path the file was opened with
	Path() string
	// IsLinked reports whether Path still names the locked file. It is false
	// once the file was removed or replaced by another process.
	IsLinked() bool
	// Close releases the lock and closes the file. It can be called more
	// than once.
	Close() error
}
