package stdio

import (
	"context"
	"io"
	"os"

	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/rpc/common"
	"github.com/ValentinKolb/dDAP/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/stdio")

// NewStdioServerTransport creates a transport that answers req once on
// stdout. Aborting a response exits the process with status 1.
func NewStdioServerTransport(req *common.Request) transport.IServerTransport {
	return newStdioTransport(req, os.Stdout, os.Exit)
}

func newStdioTransport(req *common.Request, out io.Writer, exit func(code int)) *stdioServerTransport {
	return &stdioServerTransport{request: req, out: out, exit: exit}
}

type stdioServerTransport struct {
	handler transport.ServerHandleFunc
	request *common.Request
	out     io.Writer
	exit    func(code int)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *stdioServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

// Listen answers the one request and returns the error of the handler. Error
// responses were already written to stdout at that point.
func (t *stdioServerTransport) Listen(_ common.ServerConfig) error {
	if t.handler == nil {
		return errors.New(errors.Internal, "no handler registered")
	}
	if t.request == nil {
		return errors.New(errors.Internal, "no request to answer")
	}

	Logger.Debugf("answering %s for %s", t.request.Object, t.request.Dataset)
	return t.handler(context.Background(), t.request, t.out, func() {
		Logger.Warningf("response to %s aborted", t.request.Dataset)
		t.exit(1)
	})
}
