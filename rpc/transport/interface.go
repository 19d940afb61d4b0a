package transport

import (
	"context"
	"io"

	"github.com/ValentinKolb/dDAP/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is called by a server transport for every request it
// receives. The response, status line and headers included, is written to
// sink. abort ends the response immediately (closes the connection or exits
// the process); it is used when a response times out.
type ServerHandleFunc func(ctx context.Context, req *common.Request, sink io.Writer, abort func()) error

// IServerTransport is the interface of the ways requests reach the server
type IServerTransport interface {
	// RegisterHandler registers the handler called for every request
	RegisterHandler(handler ServerHandleFunc)
	// Listen receives requests until the transport is done. It must be called
	// after RegisterHandler.
	Listen(config common.ServerConfig) error
}
