package lockmgr

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLock(t *testing.T, path string) IFileLock {
	t.Helper()
	l, err := Open(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// TestTransitionMatrix walks every pair of states
func TestTransitionMatrix(t *testing.T) {
	states := []LockState{Unlocked, Shared, Exclusive}
	path := filepath.Join(t.TempDir(), "entry")

	for _, from := range states {
		for _, to := range states {
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				l := openTestLock(t, path)
				require.NoError(t, l.Transition(from, false))
				require.Equal(t, from, l.State())
				require.NoError(t, l.Transition(to, false))
				assert.Equal(t, to, l.State())

				// a second description sees the effect of the new state
				other := openTestLock(t, path)
				err := other.Transition(Exclusive, false)
				if to == Unlocked {
					assert.NoError(t, err)
				} else {
					assert.True(t, errors.Is(err, ErrWouldBlock), "got %v", err)
				}
				require.NoError(t, other.Close())
			})
		}
	}
}

func TestSharedLocksCoexist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry")
	a := openTestLock(t, path)
	b := openTestLock(t, path)

	require.NoError(t, a.Transition(Shared, false))
	require.NoError(t, b.Transition(Shared, false))

	err := a.Transition(Exclusive, false)
	assert.True(t, errors.Is(err, ErrWouldBlock))
	assert.Equal(t, Unlocked, a.State(), "a failed conversion drops the old lock")

	require.NoError(t, b.Transition(Exclusive, false))
	assert.Equal(t, Exclusive, b.State())
}

func TestCloseReleases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry")
	a := openTestLock(t, path)
	require.NoError(t, a.Transition(Exclusive, false))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "closing twice is fine")
	assert.ErrorIs(t, a.Transition(Shared, false), ErrClosed)

	b := openTestLock(t, path)
	assert.NoError(t, b.Transition(Exclusive, false))
}

func TestBlockingWaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry")
	writer := openTestLock(t, path)
	require.NoError(t, writer.Transition(Exclusive, false))

	acquired := make(chan error, 1)
	go func() {
		reader, err := Open(path, os.O_RDONLY, 0)
		if err != nil {
			acquired <- err
			return
		}
		defer reader.Close()
		acquired <- reader.Transition(Shared, true)
	}()

	select {
	case <-acquired:
		t.Fatal("shared lock granted while an exclusive lock is held")
	default:
	}
	require.NoError(t, writer.Transition(Shared, true))
	assert.NoError(t, <-acquired)
}

func TestCreateExclusive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entry")

	l, err := CreateExclusive(path, 0o644)
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, Exclusive, l.State())
	assert.Equal(t, path, l.Path())
	assert.True(t, l.IsLinked())

	_, err = CreateExclusive(path, 0o644)
	assert.True(t, os.IsExist(err), "got %v", err)

	// the entry is locked from the moment it is visible
	other := openTestLock(t, path)
	assert.True(t, errors.Is(other.Transition(Shared, false), ErrWouldBlock))

	// no temporary files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "entry", entries[0].Name())

	require.NoError(t, os.Remove(path))
	assert.False(t, l.IsLinked())
}
