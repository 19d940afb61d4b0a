package cache

import (
	"time"

	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
)

// process wide counters exposed on /metrics
var (
	hitsTotal     = metrics.NewCounter(`ddap_cache_lookups_total{result="hit"}`)
	missesTotal   = metrics.NewCounter(`ddap_cache_lookups_total{result="miss"}`)
	failuresTotal = metrics.NewCounter(`ddap_cache_lookups_total{result="failure"}`)
	purgedTotal   = metrics.NewCounter(`ddap_cache_purged_entries_total`)
)

// cacheMetrics records the activity of one cache instance
type cacheMetrics struct {
	registry   gometrics.Registry
	hits       gometrics.Meter
	misses     gometrics.Meter
	failures   gometrics.Meter
	evaluation gometrics.Timer
	entrySize  gometrics.Histogram
}

func newCacheMetrics() *cacheMetrics {
	r := gometrics.NewRegistry()
	return &cacheMetrics{
		registry:   r,
		hits:       gometrics.GetOrRegisterMeter("cache.hits", r),
		misses:     gometrics.GetOrRegisterMeter("cache.misses", r),
		failures:   gometrics.GetOrRegisterMeter("cache.failures", r),
		evaluation: gometrics.GetOrRegisterTimer("cache.evaluation", r),
		entrySize:  gometrics.GetOrRegisterHistogram("cache.entry_size", r, gometrics.NewUniformSample(1028)),
	}
}

func (m *cacheMetrics) hit() {
	m.hits.Mark(1)
	hitsTotal.Inc()
}

func (m *cacheMetrics) miss() {
	m.misses.Mark(1)
	missesTotal.Inc()
}

func (m *cacheMetrics) failure() {
	m.failures.Mark(1)
	failuresTotal.Inc()
}

func (m *cacheMetrics) evaluated(d time.Duration) {
	m.evaluation.Update(d)
}

func (m *cacheMetrics) stored(size int64) {
	m.entrySize.Update(size)
}

func (m *cacheMetrics) purged(n int) {
	purgedTotal.Add(n)
}

// fill copies the counters into s
func (m *cacheMetrics) fill(s *Stats) {
	s.Hits = m.hits.Count()
	s.Misses = m.misses.Count()
	s.Failures = m.failures.Count()
	s.Evaluations = m.evaluation.Count()
	s.EvalMeanMillis = m.evaluation.Mean() / float64(time.Millisecond)
	s.EntrySizeMean = m.entrySize.Mean()
	s.EntrySizeMax = m.entrySize.Max()
}
