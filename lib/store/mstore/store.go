// Package mstore keeps datasets in memory. It serves tests and callers that
// build their datasets in code.
package mstore

import (
	"sort"
	"time"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

type entry struct {
	ds      *dap.Dataset
	modTime time.Time
}

// MemoryStore is a store.IDatasetStore backed by an xsync.MapOf
type MemoryStore struct {
	datasets *xsync.MapOf[string, entry]
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{datasets: xsync.NewMapOf[string, entry]()}
}

// Put adds or replaces a dataset. A zero modTime leaves the modification
// time unknown.
func (s *MemoryStore) Put(id string, ds *dap.Dataset, modTime time.Time) {
	s.datasets.Store(id, entry{ds: ds, modTime: modTime})
}

// Touch sets the modification time of a dataset
func (s *MemoryStore) Touch(id string, modTime time.Time) bool {
	_, ok := s.datasets.Compute(id, func(old entry, loaded bool) (entry, bool) {
		if !loaded {
			return old, true
		}
		old.modTime = modTime
		return old, false
	})
	return ok
}

// Delete removes a dataset
func (s *MemoryStore) Delete(id string) {
	s.datasets.Delete(id)
}

var _ store.IDatasetStore = (*MemoryStore)(nil)

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/store/interface.go)
// --------------------------------------------------------------------------

func (s *MemoryStore) Open(id string) (*dap.Dataset, error) {
	e, ok := s.datasets.Load(id)
	if !ok {
		return nil, errors.Newf(errors.NoSuchDataset, "The dataset %s does not exist", id)
	}
	return e.ds.Clone(), nil
}

func (s *MemoryStore) LastModified(id string) (time.Time, bool) {
	e, ok := s.datasets.Load(id)
	if !ok || e.modTime.IsZero() {
		return time.Time{}, false
	}
	return e.modTime, true
}

func (s *MemoryStore) List() ([]string, error) {
	ids := make([]string, 0, s.datasets.Size())
	s.datasets.Range(func(id string, _ entry) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids, nil
}
