// Package cache stores the results of server side functions on disk so that
// repeated requests for the same function on the same dataset are answered
// without evaluating it again.
//
// Every result is one file in the cache directory. Its name is derived from
// the dataset identifier and the function text (see CacheKey). The directory
// can be shared by any number of goroutines and processes, they coordinate
// only through advisory file locks (package lockmgr):
//
//   - A writer creates the entry already exclusively locked, evaluates the
//     function, writes the result and downgrades to a shared lock.
//   - Readers wait for a shared lock, so they block until the writer is done
//     and never see a partial entry.
//   - A writer that fails truncates the entry to zero bytes and unlocks it.
//     Empty entries are invalid and removed by the next lookup.
//   - Entries older than the dataset they were computed from are stale and
//     removed by the next lookup. Readers holding them keep their open file.
//
// The result is handed out together with a Token that keeps the shared lock
// until the caller has finished sending the data. Entries in use are never
// removed by a purge.
//
// Size Accounting:
//
//	After storing an entry the writer locks "<prefix>.cache_info"
//	exclusively, recomputes the total size of the directory and stores it
//	there. If the total is above the budget it first removes empty entries
//	and then the oldest entries until the total is below 80% of the budget.
//
// Metrics:
//
//	Each cache keeps its own go-metrics registry (hits, misses, evaluation
//	time, entry sizes) for Stats. Process wide counters are registered with
//	VictoriaMetrics/metrics and exposed by the HTTP transport.
package cache
