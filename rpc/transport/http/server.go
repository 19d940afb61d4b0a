package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/dDAP/rpc/common"
	"github.com/ValentinKolb/dDAP/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/http")

func NewHttpServerTransport() transport.IServerTransport {
	return &httpServerTransport{}
}

// NewHandler returns the routes of the transport as an http.Handler, e.g. to
// mount the server in an existing mux or an httptest.Server
func NewHandler(config common.ServerConfig, handler transport.ServerHandleFunc) http.Handler {
	t := &httpServerTransport{config: config, handler: handler}
	return t.newMux()
}

type httpServerTransport struct {
	handler transport.ServerHandleFunc
	config  common.ServerConfig
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *httpServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *httpServerTransport) Listen(config common.ServerConfig) error {
	t.config = config

	// Get address from config
	Logger.Infof("Starting HTTP server on %s", t.config.Endpoint)

	// Set up the server with the address and handler
	return http.ListenAndServe(t.config.Endpoint, t.newMux())
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// newMux registers the routes of the transport
func (t *httpServerTransport) newMux() *http.ServeMux {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc) {
		if t.config.LogLevel == "debug" {
			h = loggerMiddleware(h)
		}
		mux.HandleFunc(pattern, h)
	}

	handle("GET /version", t.handleVersion)
	handle("GET /metrics", handleMetrics)
	handle("GET /{path...}", t.handleRequest)
	return mux
}

// handleRequest turns a GET request into a common.Request and lets the
// handler write the complete response to the hijacked connection
func (t *httpServerTransport) handleRequest(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if t.handler == nil {
		http.Error(w, "no handler registered", http.StatusServiceUnavailable)
		return
	}

	// The response carries its own status line and headers
	conn, _, err := http.NewResponseController(w).Hijack()
	if err != nil {
		http.Error(w, "Failed to take over the connection", http.StatusInternalServerError)
		return
	}
	closeConn := sync.OnceFunc(func() {
		if err := conn.Close(); err != nil {
			Logger.Debugf("closing connection to %s: %v", r.RemoteAddr, err)
		}
	})
	defer closeConn()

	// closeConn is also the abort of the timeout guard
	_ = t.handler(r.Context(), req, conn, closeConn)
}

// handleVersion answers with the server and protocol version
func (t *httpServerTransport) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Server version: %s\nProtocol version: %s\n", t.config.ServerVersion, t.config.ProtocolVersion)
}

// handleMetrics exposes all registered metrics in the Prometheus text format
func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	metrics.WritePrometheus(w, true)
}

// parseRequest maps "GET /{dataset}.{suffix}?{constraint}" to a request
func parseRequest(r *http.Request) (*common.Request, error) {
	dataset, object, ok := common.SplitSuffix(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		return nil, fmt.Errorf("unknown object %q, use one of .das .dds .dods .ddx .dataddx .ver", r.URL.Path)
	}
	constraint, err := url.PathUnescape(r.URL.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid constraint: %w", err)
	}

	req := common.NewRequest(object, dataset, constraint)
	if since := r.Header.Get("If-Modified-Since"); since != "" {
		if ts, err := http.ParseTime(since); err == nil {
			req.IfModifiedSince = ts
		} else {
			Logger.Debugf("ignoring If-Modified-Since %q: %v", since, err)
		}
	}
	req.AcceptGzip = acceptsGzip(r.Header.Get("Accept-Encoding"))
	return req, nil
}

// acceptsGzip reports whether an Accept-Encoding value lists gzip without a
// zero quality
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	hijacked   bool
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap gives http.ResponseController access to the hijacker
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	rw.hijacked = true
	return rw.ResponseWriter
}

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create custom response writer to capture status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		// Process request
		next.ServeHTTP(rw, r)

		// Log the request
		duration := time.Since(start)
		if rw.hijacked {
			Logger.Debugf("%s %s?%s => raw response took %s", r.Method, r.URL.Path, r.URL.RawQuery, duration)
			return
		}
		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, duration)
	}
}
