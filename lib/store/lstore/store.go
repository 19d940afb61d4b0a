package lstore

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("store")

// DocumentExt is the file extension of dataset documents
const DocumentExt = ".json"

// parsed is a decoded document and the state of its file
type parsed struct {
	ds      *dap.Dataset
	modTime time.Time
	size    int64
}

type storeImpl struct {
	dir    string
	parsed *xsync.MapOf[string, parsed]
}

// NewLocalStore creates a store serving the JSON documents below dir. The
// identifier of a dataset is its path relative to dir without the extension.
// Decoded documents are kept in memory until their file changes.
func NewLocalStore(dir string) (store.IDatasetStore, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.Internal, "data directory %s", dir)
	}
	if !fi.IsDir() {
		return nil, errors.Newf(errors.Internal, "data directory %s is not a directory", dir)
	}
	return &storeImpl{
		dir:    dir,
		parsed: xsync.NewMapOf[string, parsed](),
	}, nil
}

// path maps an identifier to its document. Identifiers that leave the data
// directory are rejected.
func (s *storeImpl) path(id string) (string, error) {
	clean := filepath.Clean("/" + id)
	if id == "" || clean == "/" || strings.Contains(id, "..") {
		return "", errors.Newf(errors.NoSuchDataset, "invalid dataset identifier %q", id)
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)+DocumentExt), nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Open(id string) (*dap.Dataset, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, errors.Newf(errors.NoSuchDataset, "The dataset %s does not exist", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.Internal, "stat %s", path)
	}

	if p, ok := s.parsed.Load(path); ok && p.modTime.Equal(fi.ModTime()) && p.size == fi.Size() {
		return p.ds.Clone(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.Internal, "open %s", path)
	}
	defer f.Close()
	ds, err := store.DecodeDocument(f)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	s.parsed.Store(path, parsed{ds: ds, modTime: fi.ModTime(), size: fi.Size()})
	Logger.Debugf("loaded dataset %s from %s", id, path)
	return ds.Clone(), nil
}

func (s *storeImpl) LastModified(id string) (time.Time, bool) {
	path, err := s.path(id)
	if err != nil {
		return time.Time{}, false
	}
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return fi.ModTime(), true
}

func (s *storeImpl) List() ([]string, error) {
	var ids []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), DocumentExt) {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(strings.TrimSuffix(rel, DocumentExt)))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.Internal, "listing %s", s.dir)
	}
	sort.Strings(ids)
	return ids, nil
}
