// Package cmd implements the command-line interface of dDAP. It provides a
// hierarchical command structure for running the server, answering single
// requests and maintaining the function result cache.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the HTTP server
//   - respond: Answers one request on stdout (one process per request)
//   - cache: Commands for the function result cache (info, purge, clear)
//   - fetch: Client commands requesting objects from a server, and a benchmark
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See ddap -help for a list of all commands.
package cmd
