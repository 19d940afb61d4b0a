package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/lib/lockmgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// lineCodec stores the dataset name and the value of its variable "x"
type lineCodec struct{}

func (lineCodec) Encode(w io.Writer, ds *dap.Dataset) error {
	x := ds.Var("x").(*dap.Scalar)
	_, err := fmt.Fprintf(w, "%s %d\n", ds.Name, x.Value())
	return err
}

func (lineCodec) Decode(r io.Reader) (*dap.Dataset, error) {
	var (
		name string
		x    int32
	)
	if _, err := fmt.Fscanf(r, "%s %d\n", &name, &x); err != nil {
		return nil, err
	}
	return dap.NewDataset(name, dap.MustScalar("x", dap.TypeInt32, x)), nil
}

// fixedOracle reports every dataset as modified at the stored time
type fixedOracle struct {
	lm atomic.Int64
}

func newFixedOracle(t time.Time) *fixedOracle {
	o := &fixedOracle{}
	o.lm.Store(t.UnixNano())
	return o
}

func (o *fixedOracle) LastModified(string) (time.Time, bool) {
	return time.Unix(0, o.lm.Load()), true
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.SizeLimit = 0
	return cfg
}

func newTestCache(t *testing.T, cfg Config, oracle IFreshnessOracle) IResponseCache {
	t.Helper()
	c, err := NewCache(cfg, oracle, lineCodec{})
	require.NoError(t, err)
	return c
}

// counting returns an evaluation that counts its calls and yields x
func counting(calls *atomic.Int32, x int32, delay time.Duration) EvaluateFunc {
	return func(ctx context.Context) (*dap.Dataset, error) {
		calls.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		return dap.NewDataset("result", dap.MustScalar("x", dap.TypeInt32, x)), nil
	}
}

func valueOf(t *testing.T, ds *dap.Dataset) int32 {
	t.Helper()
	v := ds.Var("x")
	require.NotNil(t, v)
	return v.(*dap.Scalar).Value().(int32)
}

func TestGetOrComputeHit(t *testing.T) {
	c := newTestCache(t, testConfig(t), newFixedOracle(time.Unix(0, 0)))
	var calls atomic.Int32
	ctx := context.Background()

	ds, token, err := c.GetOrCompute(ctx, "data/sst.nc", "linear_scale(sst)", counting(&calls, 7, 0))
	require.NoError(t, err)
	assert.False(t, token.Cached())
	assert.Equal(t, int32(7), valueOf(t, ds))
	require.NoError(t, token.Release())

	ds, token, err = c.GetOrCompute(ctx, "data/sst.nc", "linear_scale(sst)", counting(&calls, 8, 0))
	require.NoError(t, err)
	assert.True(t, token.Cached())
	assert.Equal(t, int32(7), valueOf(t, ds))
	require.NoError(t, token.Release())

	assert.Equal(t, int32(1), calls.Load())

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evaluations)
	assert.Equal(t, stats.TotalBytes, stats.AccountedBytes)

	_, err = os.Stat(filepath.Join(c.Dir(), "f"+CacheKey("data/sst.nc", "linear_scale(sst)")))
	assert.NoError(t, err)
}

// TestSingleWriter runs lookups from independent caches on one directory,
// the function must be evaluated exactly once
func TestSingleWriter(t *testing.T) {
	cfg := testConfig(t)
	oracle := newFixedOracle(time.Unix(0, 0))
	var calls atomic.Int32

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			c, err := NewCache(cfg, oracle, lineCodec{})
			if err != nil {
				return err
			}
			ds, token, err := c.GetOrCompute(ctx, "ds", "f(x)", counting(&calls, 42, 50*time.Millisecond))
			if err != nil {
				return err
			}
			defer token.Release()
			if x := ds.Var("x").(*dap.Scalar).Value().(int32); x != 42 {
				return fmt.Errorf("got %d", x)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), calls.Load())
}

func TestStaleEntryIsRecomputed(t *testing.T) {
	oracle := newFixedOracle(time.Unix(0, 0))
	c := newTestCache(t, testConfig(t), oracle)
	var calls atomic.Int32
	ctx := context.Background()

	_, token, err := c.GetOrCompute(ctx, "ds", "f(x)", counting(&calls, 1, 0))
	require.NoError(t, err)
	require.NoError(t, token.Release())

	oracle.lm.Store(time.Now().Add(time.Hour).UnixNano())

	ds, token, err := c.GetOrCompute(ctx, "ds", "f(x)", counting(&calls, 2, 0))
	require.NoError(t, err)
	defer token.Release()
	assert.False(t, token.Cached())
	assert.Equal(t, int32(2), valueOf(t, ds))
	assert.Equal(t, int32(2), calls.Load())
}

func TestUnknownModificationTime(t *testing.T) {
	unknown := OracleFunc(func(string) (time.Time, bool) { return time.Time{}, false })
	ctx := context.Background()

	t.Run("stale", func(t *testing.T) {
		c := newTestCache(t, testConfig(t), unknown)
		var calls atomic.Int32
		for i := 0; i < 2; i++ {
			_, token, err := c.GetOrCompute(ctx, "ds", "f(x)", counting(&calls, 1, 0))
			require.NoError(t, err)
			require.NoError(t, token.Release())
		}
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("trusted", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.TrustUnknown = true
		c := newTestCache(t, cfg, unknown)
		var calls atomic.Int32
		for i := 0; i < 2; i++ {
			_, token, err := c.GetOrCompute(ctx, "ds", "f(x)", counting(&calls, 1, 0))
			require.NoError(t, err)
			require.NoError(t, token.Release())
		}
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestFailedEvaluation(t *testing.T) {
	c := newTestCache(t, testConfig(t), newFixedOracle(time.Unix(0, 0)))
	ctx := context.Background()
	path := filepath.Join(c.Dir(), entryName("f", CacheKey("ds", "f(x)")))

	failing := func(context.Context) (*dap.Dataset, error) {
		return nil, errors.New(errors.EvaluationFailure, "division by zero")
	}
	_, token, err := c.GetOrCompute(ctx, "ds", "f(x)", failing)
	require.Error(t, err)
	assert.Nil(t, token)
	assert.True(t, errors.Is(err, errors.EvaluationFailure))

	// the abandoned entry stays behind empty
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fi.Size())

	var calls atomic.Int32
	ds, token, err := c.GetOrCompute(ctx, "ds", "f(x)", counting(&calls, 3, 0))
	require.NoError(t, err)
	defer token.Release()
	assert.Equal(t, int32(3), valueOf(t, ds))
	assert.Equal(t, int32(1), calls.Load())
}

// TestPanickingEvaluation checks that a panic in the function releases the
// entry, a later lookup must not wait for the dead writer
func TestPanickingEvaluation(t *testing.T) {
	c := newTestCache(t, testConfig(t), newFixedOracle(time.Unix(0, 0)))
	ctx := context.Background()

	panicking := func(context.Context) (*dap.Dataset, error) {
		panic("function bug")
	}
	assert.PanicsWithValue(t, "function bug", func() {
		_, _, _ = c.GetOrCompute(ctx, "ds", "f(x)", panicking)
	})

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		ds, token, err := c.GetOrCompute(ctx, "ds", "f(x)", counting(&calls, 9, 0))
		if err == nil {
			defer token.Release()
			if x := ds.Var("x").(*dap.Scalar).Value().(int32); x != 9 {
				err = fmt.Errorf("got %d", x)
			}
		}
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second lookup is still waiting for the lock of the panicked writer")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestCorruptEntryIsReplaced(t *testing.T) {
	c := newTestCache(t, testConfig(t), newFixedOracle(time.Unix(0, 0)))
	path := filepath.Join(c.Dir(), entryName("f", CacheKey("ds", "f(x)")))
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	var calls atomic.Int32
	ds, token, err := c.GetOrCompute(context.Background(), "ds", "f(x)", counting(&calls, 5, 0))
	require.NoError(t, err)
	defer token.Release()
	assert.Equal(t, int32(5), valueOf(t, ds))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCancelledWhileWaiting(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRetries = 3
	cfg.RetryDelay = time.Hour
	c := newTestCache(t, cfg, newFixedOracle(time.Unix(0, 0)))

	// an empty entry that is in use forces a retry
	path := filepath.Join(c.Dir(), entryName("f", CacheKey("ds", "f(x)")))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	busy, err := lockmgr.OpenLocked(path, os.O_RDONLY, 0, lockmgr.Shared, false)
	require.NoError(t, err)
	defer busy.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var calls atomic.Int32
	_, _, err = c.GetOrCompute(ctx, "ds", "f(x)", counting(&calls, 1, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Timeout))
	assert.Equal(t, int32(0), calls.Load())
}

// fill stores one entry per dataset with increasing modification times
func fill(t *testing.T, c IResponseCache, datasets ...string) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i, id := range datasets {
		var calls atomic.Int32
		_, token, err := c.GetOrCompute(context.Background(), id, "f(x)", counting(&calls, 1, 0))
		require.NoError(t, err)
		require.NoError(t, token.Release())
		mt := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(filepath.Join(c.Dir(), entryName("f", CacheKey(id, "f(x)"))), mt, mt))
	}
}

func entryExists(c IResponseCache, id string) bool {
	_, err := os.Stat(filepath.Join(c.Dir(), entryName("f", CacheKey(id, "f(x)"))))
	return err == nil
}

func TestPurgeRemovesOldest(t *testing.T) {
	cfg := testConfig(t)
	oracle := newFixedOracle(time.Unix(0, 0))
	fill(t, newTestCache(t, cfg, oracle), "d1", "d2", "d3", "d4", "d5")

	// every entry is "result 1\n", 9 bytes
	cfg.SizeLimit = 30
	c := newTestCache(t, cfg, oracle)
	require.NoError(t, c.Purge())

	for _, id := range []string{"d1", "d2", "d3"} {
		assert.False(t, entryExists(c, id), id)
	}
	for _, id := range []string{"d4", "d5"} {
		assert.True(t, entryExists(c, id), id)
	}

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(18), stats.TotalBytes)
	assert.Equal(t, int64(18), stats.AccountedBytes)
}

func TestPurgeSkipsEntriesInUse(t *testing.T) {
	cfg := testConfig(t)
	oracle := newFixedOracle(time.Unix(0, 0))
	fill(t, newTestCache(t, cfg, oracle), "d1", "d2", "d3")

	cfg.SizeLimit = 10
	c := newTestCache(t, cfg, oracle)
	var calls atomic.Int32
	_, token, err := c.GetOrCompute(context.Background(), "d1", "f(x)", counting(&calls, 1, 0))
	require.NoError(t, err)
	require.True(t, token.Cached())

	require.NoError(t, c.Purge())
	assert.True(t, entryExists(c, "d1"))
	assert.False(t, entryExists(c, "d2"))
	assert.False(t, entryExists(c, "d3"))
	require.NoError(t, token.Release())
}

func TestStoreTriggersPurge(t *testing.T) {
	cfg := testConfig(t)
	cfg.SizeLimit = 20
	c := newTestCache(t, cfg, newFixedOracle(time.Unix(0, 0)))
	fill(t, c, "d1", "d2")

	var calls atomic.Int32
	_, token, err := c.GetOrCompute(context.Background(), "d3", "f(x)", counting(&calls, 1, 0))
	require.NoError(t, err)
	defer token.Release()

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Less(t, stats.TotalBytes, int64(16))
	assert.True(t, entryExists(c, "d3"))
}

func TestClear(t *testing.T) {
	cfg := testConfig(t)
	oracle := newFixedOracle(time.Unix(0, 0))
	c := newTestCache(t, cfg, oracle)
	fill(t, c, "d1", "d2", "d3")

	var calls atomic.Int32
	_, token, err := c.GetOrCompute(context.Background(), "d2", "f(x)", counting(&calls, 1, 0))
	require.NoError(t, err)

	n, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, entryExists(c, "d2"))
	require.NoError(t, token.Release())

	n, err = c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTokenRelease(t *testing.T) {
	var nilToken *Token
	assert.NoError(t, nilToken.Release())
	assert.False(t, nilToken.Cached())

	c := newTestCache(t, testConfig(t), newFixedOracle(time.Unix(0, 0)))
	var calls atomic.Int32
	_, token, err := c.GetOrCompute(context.Background(), "ds", "f(x)", counting(&calls, 1, 0))
	require.NoError(t, err)
	assert.NoError(t, token.Release())
	assert.NoError(t, token.Release())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "data#sst.nc#linear_scale#sst#1#2#", CacheKey("data/sst.nc", "linear_scale(sst,1,2)"))
	assert.Equal(t, "ds#f##a##", CacheKey("ds", `f("a")`))

	short := entryName("f", "ds#x")
	assert.Equal(t, "fds#x", short)

	longA := entryName("f", "ds#"+strings.Repeat("a", 300))
	longB := entryName("f", "ds#"+strings.Repeat("a", 299)+"b")
	assert.LessOrEqual(t, len(longA), maxNameLength)
	assert.NotEqual(t, longA, longB)
}
