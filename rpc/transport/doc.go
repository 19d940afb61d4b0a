// Package transport defines how requests reach the DAP server and how its
// responses leave it. A transport turns whatever it receives into a
// common.Request and hands it to the registered handler together with a raw
// sink for the response.
//
// The package focuses on:
//   - A single handler contract for all transports
//   - Raw sinks: the handler writes the complete response, status line and
//     headers included, so the same bytes can go to a socket or to stdout
//   - An abort function per request used by the timeout guard
//
// Key Components:
//
//   - IServerTransport: Interface for server-side transport implementations that
//     receive requests and pass them to the handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// Implementations:
//
//   - http: serves GET /{dataset}.{das|dds|dods|ddx|dataddx|ver}?{constraint} and
//     writes the response directly to the hijacked connection.
//
//   - stdio: answers exactly one request per process on stdout.
package transport
