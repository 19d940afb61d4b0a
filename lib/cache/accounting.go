package cache

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/lib/lockmgr"
)

// entryInfo is a cache entry found in the directory
type entryInfo struct {
	name    string
	size    int64
	modTime int64
}

// scan lists the entries of this cache. The accounting file and temporary
// files of writers are skipped.
func (c *cacheImpl) scan() ([]entryInfo, int64, error) {
	dirEntries, err := os.ReadDir(c.config.Dir)
	if err != nil {
		return nil, 0, errors.Wrapf(err, errors.CacheFailure, "read cache directory %s", c.config.Dir)
	}
	infoName := c.config.Prefix + infoSuffix

	var (
		entries []entryInfo
		total   int64
	)
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || name == infoName || strings.HasPrefix(name, ".") || !strings.HasPrefix(name, c.config.Prefix) {
			continue
		}
		fi, err := de.Info()
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, 0, errors.Wrapf(err, errors.CacheFailure, "stat %s", name)
		}
		entries = append(entries, entryInfo{name: name, size: fi.Size(), modTime: fi.ModTime().UnixNano()})
		total += fi.Size()
	}
	return entries, total, nil
}

// withInfoLock runs fn while holding the exclusive lock on the accounting
// file. The total returned by fn is stored in the file.
func (c *cacheImpl) withInfoLock(fn func() (int64, error)) error {
	l, err := lockmgr.OpenLocked(c.infoPath(), os.O_RDWR|os.O_CREATE, entryPerm, lockmgr.Exclusive, true)
	if err != nil {
		return errors.Wrapf(err, errors.CacheFailure, "lock %s", c.infoPath())
	}
	defer l.Close()

	total, err := fn()
	if err != nil {
		return err
	}
	return writeTotal(l.File(), total)
}

func writeTotal(f *os.File, total int64) error {
	if err := f.Truncate(0); err != nil {
		return errors.Wrapf(err, errors.CacheFailure, "truncate %s", f.Name())
	}
	if _, err := f.WriteAt([]byte(strconv.FormatInt(total, 10)), 0); err != nil {
		return errors.Wrapf(err, errors.CacheFailure, "write %s", f.Name())
	}
	return nil
}

// readTotal returns the size stored in the accounting file, 0 if there is none
func (c *cacheImpl) readTotal() (int64, error) {
	l, err := lockmgr.OpenLocked(c.infoPath(), os.O_RDONLY, 0, lockmgr.Shared, true)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, errors.CacheFailure, "lock %s", c.infoPath())
	}
	defer l.Close()

	b, err := io.ReadAll(l.File())
	if err != nil {
		return 0, errors.Wrapf(err, errors.CacheFailure, "read %s", c.infoPath())
	}
	if len(b) == 0 {
		return 0, nil
	}
	total, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CacheFailure, "corrupt size in %s", c.infoPath())
	}
	return total, nil
}

// account recomputes the size of the directory after a new entry was stored
// and purges if it exceeds the budget
func (c *cacheImpl) account() error {
	return c.withInfoLock(func() (int64, error) {
		entries, total, err := c.scan()
		if err != nil {
			return 0, err
		}
		if c.config.SizeLimit <= 0 || total <= c.config.SizeLimit {
			return total, nil
		}
		Logger.Infof("cache %s holds %d bytes, limit is %d, purging", c.config.Dir, total, c.config.SizeLimit)
		return c.purgeLocked(entries, total)
	})
}

// purgeLocked removes empty entries and then the oldest entries until the
// total drops below purgeTarget of the budget. Entries in use are skipped.
// The caller holds the accounting lock.
func (c *cacheImpl) purgeLocked(entries []entryInfo, total int64) (int64, error) {
	removed := 0
	q := newPurgeQueue()
	for _, e := range entries {
		if e.size > 0 {
			q.AddItem(e.name, e.modTime, e.size)
			continue
		}
		ok, err := removeIfUnused(filepath.Join(c.config.Dir, e.name), func(fi os.FileInfo) bool { return fi.Size() == 0 })
		if err != nil {
			return total, err
		}
		if ok {
			removed++
		}
	}

	if c.config.SizeLimit > 0 && total > c.config.SizeLimit {
		target := int64(float64(c.config.SizeLimit) * purgeTarget)
		for total >= target {
			it, ok := q.PopOldest()
			if !ok {
				break
			}
			ok, err := removeIfUnused(filepath.Join(c.config.Dir, it.Key), func(os.FileInfo) bool { return true })
			if err != nil {
				return total, err
			}
			if ok {
				total -= it.Size
				removed++
			}
		}
		if total >= target {
			Logger.Warningf("cache %s still holds %d bytes after purging, remaining entries are in use", c.config.Dir, total)
		}
	}

	if removed > 0 {
		c.stats.purged(removed)
		Logger.Infof("purged %d entries from %s", removed, c.config.Dir)
	}
	return total, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/cache/interface.go)
// --------------------------------------------------------------------------

func (c *cacheImpl) Purge() error {
	return c.withInfoLock(func() (int64, error) {
		entries, total, err := c.scan()
		if err != nil {
			return 0, err
		}
		return c.purgeLocked(entries, total)
	})
}

func (c *cacheImpl) Clear() (int, error) {
	removed := 0
	err := c.withInfoLock(func() (int64, error) {
		entries, total, err := c.scan()
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			ok, err := removeIfUnused(filepath.Join(c.config.Dir, e.name), func(os.FileInfo) bool { return true })
			if err != nil {
				return total, err
			}
			if ok {
				total -= e.size
				removed++
			}
		}
		return total, nil
	})
	if removed > 0 {
		c.stats.purged(removed)
	}
	return removed, err
}

func (c *cacheImpl) Stats() (Stats, error) {
	entries, total, err := c.scan()
	if err != nil {
		return Stats{}, err
	}
	accounted, err := c.readTotal()
	if err != nil {
		return Stats{}, err
	}
	s := Stats{
		Dir:            c.config.Dir,
		Entries:        len(entries),
		TotalBytes:     total,
		LimitBytes:     c.config.SizeLimit,
		AccountedBytes: accounted,
	}
	c.stats.fill(&s)
	return s, nil
}
