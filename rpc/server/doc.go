// Package server builds DAP responses. It ties the dataset store, the
// constraint evaluator, the function result cache, the wire codecs and the
// timeout guard together and frames the result as an HTTP/1.0 style
// response written directly to a raw sink.
//
// The package focuses on:
//   - Framing: status lines, headers and multipart documents
//   - The response pipeline from constraint to encoded values
//   - Turning every error into exactly one user facing error response
//
// Key Components:
//
//   - Envelope: The object type, encoding, modification time and versions of
//     one response, with writers for text, binary, multipart, 304 and error
//     headers.
//
//   - ResponseBuilder: Writes the DAS, DDS, DDX, data, data+metadata and
//     version responses for one request. A constraint is split into calls of
//     registered functions and a projection; the calls are evaluated through
//     the cache, the projection then selects from their result.
//
//   - WriteDataDDX / ReadDataDDX: The data+metadata multipart document. The
//     function cache stores its entries in the same format, so the same
//     reader parses a cache entry and a response (ReadResponse).
//
//   - IResponseAdapter: Answers the requests for one object type. The server
//     keeps one adapter per requestable type.
//
//   - DAPServer: Created by NewDAPServer, registers HandleRequest with a
//     transport and arms a timeout guard for every response.
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.DataDir = "./data"
//	config.TimeoutSecond = 30
//
//	datasets, _ := lstore.NewLocalStore(config.DataDir)
//	registry := functions.NewRegistry()
//	_ = functions.RegisterBuiltins(registry)
//
//	s, err := server.NewDAPServer(config, http.NewHttpServerTransport(), datasets, registry)
//	if err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Response rules:
//
//   - A conditional request whose If-Modified-Since is not before the
//     modification time of the dataset is answered with the 304 envelope only.
//
//   - The size of data responses is checked against the configured limit
//     before the first byte is written.
//
//   - Errors before the first byte become an error response (status line,
//     headers and an Error object). Later errors abort the response; the
//     client sees a truncated stream.
//
//   - With the dap4 encoding every top level variable is followed by the MD5
//     checksum of its bytes.
//
// Thread Safety:
//
//	DAPServer.HandleRequest can be called concurrently. Each call uses its own
//	ResponseBuilder and, unless a shared table was set with UseSignalTable,
//	its own signal table, so a timeout only ends the response it belongs to.
package server
