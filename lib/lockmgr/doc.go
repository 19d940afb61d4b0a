// Package lockmgr provides scoped advisory file locks. They are the only
// mechanism the function result cache uses to coordinate processes and
// goroutines that share a cache directory.
//
// A guard (IFileLock) wraps one open file and is always in one of three
// states: Unlocked, Shared or Exclusive. Transition is total over these
// states. Moving to the current state does nothing, moving to Unlocked
// always releases, and shared and exclusive locks convert into each other.
// A non-blocking transition that would wait returns ErrWouldBlock.
//
// Implementation Approach:
//
//	Locks are flock(2) locks. They belong to the open file description, so
//	every guard behaves like a separate process, even when two guards in
//	the same process lock the same path. Closing a guard always releases
//	its lock, callers defer Close on every path.
//
//	Converting a lock is not atomic: flock(2) drops the held lock before
//	it requests the new one. A failed conversion therefore leaves the
//	guard Unlocked, which State reports.
//
//	CreateExclusive publishes a new file that is already exclusively
//	locked. It creates and locks a uniquely named temporary file and links
//	it to the final name. The link fails if the name exists, so exactly one
//	creator wins and nobody can observe the new file unlocked.
//
// Thread Safety:
//
//	A guard serializes its own state changes with a mutex and can be shared
//	between goroutines. Blocking transitions must not be called while
//	another goroutine needs the same guard.
package lockmgr
