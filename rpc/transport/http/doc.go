// Package http implements the HTTP transport of the DAP server. Requests are
// plain GET requests for "/{dataset}.{suffix}?{constraint}"; the response is
// written by the server itself onto the hijacked connection, so the status
// line and headers on the wire are exactly the ones the response builder
// produced.
//
// The package focuses on:
//   - Mapping the request path, query and headers to a common.Request
//   - Handing the raw connection to the handler and closing it afterwards
//   - Auxiliary endpoints for the server version and Prometheus metrics
//
// Key Components:
//
//   - httpServerTransport: Implements the IServerTransport interface. It
//     routes GET /version, GET /metrics and GET /{path...}. The last route
//     accepts the suffixes .das .dds .dods .ddx .dataddx and .ver, unescapes
//     the query to the constraint expression, parses If-Modified-Since and
//     Accept-Encoding and answers unknown suffixes with 400.
//
//   - loggerMiddleware: Logs method, path and duration of every request when
//     the log level is debug.
//
// Thread Safety:
//
//	Requests are served concurrently by net/http. The abort function passed to
//	the handler closes the connection at most once and may be called from the
//	timeout guard while the response is being written.
package http
