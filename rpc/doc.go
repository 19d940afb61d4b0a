// Package rpc provides everything between a DAP request arriving and its
// response leaving the process. The response semantics live in the lib
// packages; the packages here frame, transport and configure them.
//
// The package is organized into several subpackages:
//
//   - common: Request and object types, the server and client configuration
//     and logger setup.
//
//   - serializer: The wire codecs (XDR and DAP4 byte order) that implement the
//     marshaller interfaces of the dap package.
//
//   - transport: How requests arrive and where responses go (HTTP with a
//     hijacked connection, or one request on stdout).
//
//   - server: The response builder, envelopes, multipart documents and the
//     timeout guarded request handler.
//
//   - client: A client that fetches and decodes objects from a server.
package rpc
