package cache

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/lib/lockmgr"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("cache")

const (
	// infoSuffix names the size accounting file "<prefix>.cache_info"
	infoSuffix = ".cache_info"
	// purgeTarget is the share of the budget a purge shrinks the cache to
	purgeTarget = 0.8
	entryPerm   = 0o644
)

// Config holds the options of a cache
type Config struct {
	// Dir is the cache directory, created if missing
	Dir string
	// Prefix is prepended to every entry name
	Prefix string
	// SizeLimit is the size budget of the directory in bytes (0 = unlimited)
	SizeLimit int64
	// TrustUnknown keeps entries of datasets whose modification time is unknown
	TrustUnknown bool
	// MaxRetries bounds how often a lookup starts over after losing a race
	MaxRetries int
	// RetryDelay is the pause before the first retry, it grows linearly
	RetryDelay time.Duration
}

// DefaultConfig returns the default options
func DefaultConfig() Config {
	return Config{
		Dir:        "/tmp/dap_functions_cache/",
		Prefix:     "f",
		SizeLimit:  20000 * 1024 * 1024,
		MaxRetries: 5,
		RetryDelay: 10 * time.Millisecond,
	}
}

type cacheImpl struct {
	config Config
	oracle IFreshnessOracle
	codec  IEntryCodec
	stats  *cacheMetrics
}

// sentinel outcomes of one lookup attempt
var (
	errNoEntry = errors.New(errors.CacheFailure, "no cache entry")
	errRetry   = errors.New(errors.CacheFailure, "cache entry changed while waiting")
)

// NewCache creates a cache in config.Dir
func NewCache(config Config, oracle IFreshnessOracle, codec IEntryCodec) (IResponseCache, error) {
	if config.Dir == "" {
		return nil, errors.New(errors.CacheFailure, "no cache directory configured")
	}
	if oracle == nil || codec == nil {
		return nil, errors.New(errors.Internal, "a cache needs a freshness oracle and an entry codec")
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultConfig().MaxRetries
	}
	if err := os.MkdirAll(config.Dir, 0o777); err != nil {
		return nil, errors.Wrapf(err, errors.CacheFailure, "could not create cache directory %s", config.Dir)
	}
	return &cacheImpl{
		config: config,
		oracle: oracle,
		codec:  codec,
		stats:  newCacheMetrics(),
	}, nil
}

func (c *cacheImpl) entryPath(key string) string {
	return filepath.Join(c.config.Dir, entryName(c.config.Prefix, key))
}

func (c *cacheImpl) infoPath() string {
	return filepath.Join(c.config.Dir, c.config.Prefix+infoSuffix)
}

// isFresh reports whether an entry written at modTime is not older than the dataset
func (c *cacheImpl) isFresh(datasetID string, modTime time.Time) bool {
	lm, ok := c.oracle.LastModified(datasetID)
	if !ok {
		return c.config.TrustUnknown
	}
	return !lm.After(modTime)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/cache/interface.go)
// --------------------------------------------------------------------------

func (c *cacheImpl) Dir() string {
	return c.config.Dir
}

func (c *cacheImpl) GetOrCompute(ctx context.Context, datasetID, function string, evaluate EvaluateFunc) (*dap.Dataset, *Token, error) {
	key := CacheKey(datasetID, function)
	path := c.entryPath(key)

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, attempt); err != nil {
				return nil, nil, err
			}
		}

		if err := c.checkValidity(path, datasetID); err != nil {
			c.stats.failure()
			return nil, nil, err
		}

		ds, token, err := c.readEntry(path, datasetID)
		switch {
		case err == nil:
			c.stats.hit()
			Logger.Debugf("cache hit for %s", key)
			return ds, token, nil
		case err == errRetry:
			continue
		case err != errNoEntry:
			c.stats.failure()
			return nil, nil, err
		}

		ds, token, err = c.writeEntry(ctx, path, datasetID, evaluate)
		if err == nil {
			c.stats.miss()
			return ds, token, nil
		}
		if os.IsExist(errors.Cause(err)) {
			Logger.Debugf("lost the race to create %s, waiting for the writer", key)
			continue
		}
		c.stats.failure()
		return nil, nil, err
	}

	c.stats.failure()
	return nil, nil, errors.Newf(errors.CacheFailure, "gave up on cache entry %s after %d attempts", key, c.config.MaxRetries+1)
}

func (c *cacheImpl) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt) * c.config.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.Timeout, "waiting for cache entry")
	case <-timer.C:
		return nil
	}
}

// checkValidity removes the entry at path if it is invalid. Stale entries are
// unlinked right away, readers keep their open file. Empty entries are only
// removed if no writer holds them.
func (c *cacheImpl) checkValidity(path, datasetID string) error {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, errors.CacheFailure, "stat %s", path)
	}

	if fi.Size() > 0 {
		if c.isFresh(datasetID, fi.ModTime()) {
			return nil
		}
		Logger.Infof("removing stale cache entry %s", fi.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, errors.CacheFailure, "remove %s", path)
		}
		return nil
	}

	removed, err := removeIfUnused(path, func(fi os.FileInfo) bool { return fi.Size() == 0 })
	if err != nil {
		return err
	}
	if removed {
		Logger.Infof("removed empty cache entry %s", fi.Name())
	}
	return nil
}

// removeIfUnused unlinks path if an exclusive lock can be taken without
// waiting and cond holds for the locked file
func removeIfUnused(path string, cond func(os.FileInfo) bool) (bool, error) {
	l, err := lockmgr.OpenLocked(path, os.O_RDONLY, 0, lockmgr.Exclusive, false)
	if os.IsNotExist(err) || err == lockmgr.ErrWouldBlock {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, errors.CacheFailure, "lock %s", path)
	}
	defer l.Close()

	if !l.IsLinked() {
		return false, nil
	}
	fi, err := l.File().Stat()
	if err != nil {
		return false, errors.Wrapf(err, errors.CacheFailure, "stat %s", path)
	}
	if !cond(fi) {
		return false, nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return false, errors.Wrapf(err, errors.CacheFailure, "remove %s", path)
	}
	return true, nil
}

// readEntry waits for a shared lock on an existing entry and decodes it
func (c *cacheImpl) readEntry(path, datasetID string) (*dap.Dataset, *Token, error) {
	l, err := lockmgr.Open(path, os.O_RDONLY, 0)
	if os.IsNotExist(err) {
		return nil, nil, errNoEntry
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.CacheFailure, "open %s", path)
	}
	if err := l.Transition(lockmgr.Shared, true); err != nil {
		_ = l.Close()
		return nil, nil, errors.Wrapf(err, errors.CacheFailure, "shared lock on %s", path)
	}

	// the entry may have been removed, abandoned or replaced while we waited
	fi, err := l.File().Stat()
	if err != nil || !l.IsLinked() || fi.Size() == 0 || !c.isFresh(datasetID, fi.ModTime()) {
		_ = l.Close()
		return nil, nil, errRetry
	}

	ds, err := c.codec.Decode(bufio.NewReader(l.File()))
	if err != nil {
		_ = l.Close()
		Logger.Errorf("corrupt cache entry %s, removing it: %v", path, err)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, nil, errors.Wrapf(err, errors.CacheFailure, "remove %s", path)
		}
		return nil, nil, errRetry
	}
	return ds, &Token{lock: l, cached: true}, nil
}

// writeEntry creates the entry, evaluates and stores the result. On failure
// the entry is truncated and unlocked without downgrading, a later
// checkValidity removes it.
func (c *cacheImpl) writeEntry(ctx context.Context, path, datasetID string, evaluate EvaluateFunc) (*dap.Dataset, *Token, error) {
	l, err := lockmgr.CreateExclusive(path, entryPerm)
	if err != nil {
		if os.IsExist(err) {
			return nil, nil, err
		}
		return nil, nil, errors.Wrapf(err, errors.CacheFailure, "create %s", path)
	}

	// until the entry is written every way out, panics included, leaves it
	// empty and releases the lock
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := l.File().Truncate(0); err != nil {
			Logger.Warningf("could not truncate abandoned cache entry %s: %v", path, err)
		}
		_ = l.Close()
	}()

	start := time.Now()
	ds, err := evaluate(ctx)
	c.stats.evaluated(time.Since(start))
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.EvaluationFailure, "evaluating function")
	}

	w := bufio.NewWriterSize(l.File(), 64*1024)
	err = c.codec.Encode(w, ds)
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = l.File().Sync()
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.CacheFailure, "writing cache entry %s", path)
	}

	committed = true

	if err := l.Transition(lockmgr.Shared, true); err != nil {
		_ = l.Close()
		return nil, nil, errors.Wrapf(err, errors.CacheFailure, "downgrade lock on %s", path)
	}

	fi, err := l.File().Stat()
	if err != nil {
		_ = l.Close()
		return nil, nil, errors.Wrapf(err, errors.CacheFailure, "stat %s", path)
	}
	c.stats.stored(fi.Size())
	Logger.Debugf("stored %s (%d bytes) for %s", filepath.Base(path), fi.Size(), datasetID)

	if err := c.account(); err != nil {
		_ = l.Close()
		return nil, nil, err
	}
	return ds, &Token{lock: l}, nil
}
