// Package store provides the datasets a server answers requests for.
//
// The package focuses on:
//   - A unified interface (IDatasetStore) for opening datasets by identifier
//   - The modification time of a dataset, which the function result cache
//     uses to decide whether a cached result is still valid
//
// Key Components:
//
//   - IDatasetStore Interface: Open returns a private copy of a dataset, so a
//     request can apply its constraint without affecting other requests.
//     LastModified reports false when the time is unknown; the cache then
//     follows its TrustUnknown option instead of guessing.
//
//   - Documents: Datasets are described by JSON documents (Document). A
//     document lists the global attributes and the variables with their
//     attributes and values. Numbers are decoded with json.Number and only
//     converted once the type of their variable is known.
//
// Implementations:
//
//	- Local Store (lstore): serves the documents below a data directory and
//	  uses the file modification time as dataset modification time.
//
//	- Memory Store (mstore): keeps datasets built in code in memory, with
//	  explicit modification times.
//
// Usage Example:
//
//	s, err := lstore.NewLocalStore("/srv/data")
//	ds, err := s.Open("ocean/coads")
//	lm, ok := s.LastModified("ocean/coads")
package store
