package cache

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/lockmgr"
)

// EvaluateFunc computes the function result that is cached
type EvaluateFunc func(ctx context.Context) (*dap.Dataset, error)

// IEntryCodec writes and reads the content of a cache entry
type IEntryCodec interface {
	// Encode writes the dataset (metadata and data) to w
	Encode(w io.Writer, ds *dap.Dataset) error
	// Decode reads a dataset written by Encode
	Decode(r io.Reader) (*dap.Dataset, error)
}

type entryCodecFunc struct {
	encode func(w io.Writer, ds *dap.Dataset) error
	decode func(r io.Reader) (*dap.Dataset, error)
}

// NewEntryCodecFunc builds an IEntryCodec from two functions
func NewEntryCodecFunc(encode func(w io.Writer, ds *dap.Dataset) error, decode func(r io.Reader) (*dap.Dataset, error)) IEntryCodec {
	return entryCodecFunc{encode: encode, decode: decode}
}

func (c entryCodecFunc) Encode(w io.Writer, ds *dap.Dataset) error { return c.encode(w, ds) }

func (c entryCodecFunc) Decode(r io.Reader) (*dap.Dataset, error) { return c.decode(r) }

// IFreshnessOracle tells when a dataset was last modified
type IFreshnessOracle interface {
	// LastModified returns the modification time of the dataset. ok is false
	// if the oracle cannot tell.
	LastModified(datasetID string) (t time.Time, ok bool)
}

// OracleFunc adapts a function to IFreshnessOracle
type OracleFunc func(datasetID string) (time.Time, bool)

func (f OracleFunc) LastModified(datasetID string) (time.Time, bool) {
	return f(datasetID)
}

// IResponseCache stores function results on disk and shares them between
// goroutines and processes using the same directory
type IResponseCache interface {
	// GetOrCompute returns the cached result for the function text evaluated
	// on the dataset or evaluates and stores it. At most one caller evaluates
	// a key at a time, all others wait for its result. The returned token
	// must be released once the dataset is no longer read.
	GetOrCompute(ctx context.Context, datasetID, function string, evaluate EvaluateFunc) (*dap.Dataset, *Token, error)
	// Purge removes empty entries and, if the directory is over its size
	// budget, the oldest entries that are not in use
	Purge() error
	// Clear removes every entry that is not in use and returns how many were removed
	Clear() (int, error)
	// Stats returns the current state of the cache
	Stats() (Stats, error)
	// Dir returns the cache directory
	Dir() string
}

// Token keeps a cache entry locked for reading. Release is idempotent and
// safe on a nil token.
type Token struct {
	lock   lockmgr.IFileLock
	cached bool
	once   sync.Once
	err    error
}

// Cached reports whether the result was read from an existing entry
func (t *Token) Cached() bool {
	return t != nil && t.cached
}

// Release unlocks the entry
func (t *Token) Release() error {
	if t == nil || t.lock == nil {
		return nil
	}
	t.once.Do(func() {
		t.err = t.lock.Close()
	})
	return t.err
}

// Stats describes the cache directory and the activity of this cache
type Stats struct {
	Dir        string
	Entries    int
	TotalBytes int64
	LimitBytes int64
	// AccountedBytes is the size last recorded in the accounting file
	AccountedBytes int64

	Hits           int64
	Misses         int64
	Evaluations    int64
	Failures       int64
	EvalMeanMillis float64
	EntrySizeMean  float64
	EntrySizeMax   int64
}
