package lockmgr

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sys/unix"
)

var Logger = logger.GetLogger("lockmgr")

type fileLockImpl struct {
	mu     sync.Mutex
	f      *os.File
	path   string
	state  LockState
	closed bool
}

// Open opens a file and returns an unlocked guard for it
func Open(path string, flag int, perm os.FileMode) (IFileLock, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}
	return &fileLockImpl{f: f, path: path}, nil
}

// OpenLocked opens a file and transitions to the given state
func OpenLocked(path string, flag int, perm os.FileMode, state LockState, wait bool) (IFileLock, error) {
	l, err := Open(path, flag, perm)
	if err != nil {
		return nil, err
	}
	if err := l.Transition(state, wait); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

// CreateExclusive creates a new file at path that is exclusively locked
// before it becomes visible. The file is created under a unique temporary
// name, locked and then hard linked to path. If path already exists the
// error satisfies os.IsExist.
func CreateExclusive(path string, perm os.FileMode) (IFileLock, error) {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	l, err := OpenLocked(tmp, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm, Exclusive, false)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			Logger.Warningf("could not remove temporary file %s: %v", tmp, err)
		}
	}()

	if err := os.Link(tmp, path); err != nil {
		_ = l.Close()
		return nil, err
	}
	impl := l.(*fileLockImpl)
	impl.path = path
	return impl, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/lockmgr/interface.go)
// --------------------------------------------------------------------------

func (l *fileLockImpl) State() LockState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *fileLockImpl) Transition(to LockState, wait bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if to < Unlocked || to > Exclusive {
		return errors.Newf(errors.Internal, "invalid lock state %d", to)
	}
	if to == l.state {
		return nil
	}

	from := l.state
	err := flock(l.f, flockOp(to, wait))
	switch {
	case err == nil:
		l.state = to
		Logger.Debugf("%s: %s -> %s", l.path, from, to)
		return nil
	case err == unix.EWOULDBLOCK:
		err = ErrWouldBlock
	default:
		err = errors.Wrapf(err, errors.CacheFailure, "flock %s", l.path)
	}

	// flock(2) drops the old lock before taking the new one
	if from != Unlocked {
		l.state = Unlocked
	}
	return err
}

func (l *fileLockImpl) File() *os.File {
	return l.f
}

func (l *fileLockImpl) Path() string {
	return l.path
}

func (l *fileLockImpl) IsLinked() bool {
	onDisk, err := os.Stat(l.path)
	if err != nil {
		return false
	}
	open, err := l.f.Stat()
	if err != nil {
		return false
	}
	return os.SameFile(onDisk, open)
}

func (l *fileLockImpl) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	var unlockErr error
	if l.state != Unlocked {
		unlockErr = flock(l.f, unix.LOCK_UN)
		l.state = Unlocked
	}
	if err := l.f.Close(); err != nil {
		return err
	}
	return unlockErr
}
