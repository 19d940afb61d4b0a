package server

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ValentinKolb/dDAP/lib/cache"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/lib/functions"
	"github.com/ValentinKolb/dDAP/lib/store"
	"github.com/ValentinKolb/dDAP/lib/timeout"
	"github.com/ValentinKolb/dDAP/rpc/common"
	"github.com/ValentinKolb/dDAP/rpc/serializer"
	"github.com/ValentinKolb/dDAP/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("server")

var responseDuration = metrics.NewHistogram("ddap_response_duration_seconds")

func requestCounter(t common.ObjectType) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`ddap_requests_total{object=%q}`, t.String()))
}

func errorCounter(code errors.Code) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`ddap_request_errors_total{code=%q}`, string(code)))
}

// NewDAPServer creates a DAP server answering the requests of transport with
// datasets from the store. If the configuration names a cache directory
// function results are cached there.
//
// Usage:
//
//	registry := functions.NewRegistry()
//	_ = functions.RegisterBuiltins(registry)
//	datasets, _ := lstore.NewLocalStore(config.DataDir)
//
//	s, err := server.NewDAPServer(config, http.NewHttpServerTransport(), datasets, registry)
//	if err != nil {
//		panic(err)
//	}
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewDAPServer(
	config common.ServerConfig,
	transport transport.IServerTransport,
	datasets store.IDatasetStore,
	registry functions.IFunctionRegistry,
) (*DAPServer, error) {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	if datasets == nil {
		return nil, errors.New(errors.Internal, "a server needs a dataset store")
	}
	if registry == nil {
		registry = functions.NewRegistry()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	wire, _ := serializer.ParseOrder(strings.ToLower(config.WireOrder))
	codec, err := serializer.NewCodec(config.Encoding, wire, config.MaxVectorLength)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "could not create the wire codec")
	}

	opts := Options{
		Config:   config,
		Store:    datasets,
		Registry: registry,
		Codec:    codec,
	}
	if config.CacheEnabled() {
		opts.Cache, err = cache.NewCache(
			config.ToCacheConfig(),
			cache.OracleFunc(datasets.LastModified),
			NewEntryCodec(codec, config.ContentIDDomain, config.MaxVectorLength),
		)
		if err != nil {
			return nil, err
		}
	}

	Logger.Infof("Created DAP Server")
	Logger.Infof(config.String())

	return &DAPServer{
		config:    config,
		transport: transport,
		opts:      opts,
		adapters:  newAdapterTable(),
	}, nil
}

// DAPServer dispatches requests to the adapter of their object type
type DAPServer struct {
	config    common.ServerConfig
	transport transport.IServerTransport
	opts      Options
	adapters  *xsync.MapOf[common.ObjectType, IResponseAdapter]
	signals   *timeout.SignalTable
}

// UseSignalTable makes all responses arm their timeout on t instead of a
// private table per request. Used by the one-shot responder whose table is
// attached to the OS signals.
func (s *DAPServer) UseSignalTable(t *timeout.SignalTable) {
	s.signals = t
}

// Cache returns the function result cache or nil
func (s *DAPServer) Cache() cache.IResponseCache {
	return s.opts.Cache
}

// Serve initializes the loggers, registers the request handler and starts
// the transport
func (s *DAPServer) Serve() error {
	if err := common.InitLoggers(s.config); err != nil {
		return err
	}
	if s.transport == nil {
		return errors.New(errors.Internal, "the server has no transport")
	}
	s.transport.RegisterHandler(s.HandleRequest)
	Logger.Infof("dDAP setup completed successfully")
	return s.transport.Listen(s.config)
}

// HandleRequest writes the complete response to req onto sink. Errors that
// occur before the first byte was written are sent as an error response,
// later ones abort the response. The error is returned in both cases.
func (s *DAPServer) HandleRequest(ctx context.Context, req *common.Request, sink io.Writer, abort func()) error {
	start := time.Now()
	defer responseDuration.UpdateDuration(start)
	requestCounter(req.Object).Inc()

	table := s.signals
	if table == nil {
		table = timeout.NewSignalTable()
		defer table.Close()
	}
	guard := timeout.NewGuard(ctx, table, timeout.NewTimerWatchdog(), sink, abort)
	if err := guard.Establish(s.config.Timeout()); err != nil {
		return err
	}
	defer guard.Remove()

	counted := &countingWriter{w: sink}
	b := NewResponseBuilder(guard.Context(), s.opts, req, counted)

	var err error
	if adapter, ok := s.adapters.Load(req.Object); ok {
		err = adapter.Handle(b)
	} else {
		err = errors.Newf(errors.NotImplemented, "objects of type %s cannot be requested", req.Object)
	}
	if err == nil {
		return nil
	}

	errorCounter(errors.CodeOf(err)).Inc()
	switch {
	case guard.Fired():
		// the guard already wrote the error and ended the response
	case counted.n == 0:
		Logger.Infof("%s %s?%s: %v", req.Object, req.Dataset, req.Constraint, err)
		if werr := b.SendError(err); werr != nil {
			Logger.Warningf("could not send error response: %v", werr)
		}
	default:
		Logger.Warningf("%s %s?%s aborted after %d bytes: %v", req.Object, req.Dataset, req.Constraint, counted.n, err)
	}
	return err
}

// countingWriter counts the bytes written to the sink
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
