// Package lstore implements store.IDatasetStore on a local directory of JSON
// dataset documents (see store.Document).
//
// The identifier "ocean/coads" names the file "<dir>/ocean/coads.json". The
// modification time of that file is the modification time of the dataset,
// so the function result cache treats every cached result of a dataset as
// stale once its document is rewritten.
//
// Implementation Details:
//
//   - Decoded documents are kept in an xsync.MapOf keyed by path together
//     with the modification time and size of the file. A changed file is
//     decoded again on the next Open.
//   - Open always hands out a deep copy. Constraints mark variables and
//     hyperslabs in place, so concurrent requests must not share a dataset.
//
// Thread Safety:
//
//	All methods are safe for concurrent use. Two goroutines opening a
//	changed document at the same time may both decode it; the last one wins.
package lstore
