// Package dap implements the variable model the response pipeline works on.
// A Dataset is an ordered list of Variables; each variable has a name, a type
// tag, an attribute table, a "selected for output" flag and knows how to
// serialize itself through an IMarshaller and read itself back through an
// IUnMarshaller.
//
// Key Components:
//
//   - Variable / Container: the contract consumed by the constraint evaluator,
//     the function cache and the response builder.
//
//   - Scalar, Array, Structure, Sequence: the concrete variable types. Arrays
//     carry start:stride:stop hyperslabs per dimension; sequences carry row
//     filters and are tagged parent/leaf so that parent rows are only sent when
//     their nested rows are.
//
//   - IMarshaller / IChecksumMarshaller / IUnMarshaller: the wire codec
//     interfaces. They are declared here, next to the code that calls them,
//     and implemented by rpc/serializer.
//
//   - PrintDDS, PrintDAS, PrintDDX, ParseDDX: the textual descriptor and
//     attribute documents and the XML descriptor used in multipart responses
//     and cache entries.
//
// Thread Safety:
//
//	Variables and datasets are not safe for concurrent use. Every request
//	works on its own copy (see Dataset.Clone).
package dap
