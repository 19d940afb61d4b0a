package timeout

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
)

// Guard enforces the deadline of one response. When the deadline passes it
// writes a truncated error to the raw sink and terminates the response.
type Guard struct {
	table     *SignalTable
	watchdog  IWatchdog
	sink      io.Writer
	terminate func()

	mu          sync.Mutex
	established bool
	payload     []byte
	cause       error

	fired  atomic.Bool
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewGuard creates a guard that is not armed yet. terminate is called after
// the error was written, it closes the connection or exits the process.
func NewGuard(ctx context.Context, table *SignalTable, watchdog IWatchdog, sink io.Writer, terminate func()) *Guard {
	gctx, cancel := context.WithCancelCause(ctx)
	return &Guard{
		table:     table,
		watchdog:  watchdog,
		sink:      sink,
		terminate: terminate,
		ctx:       gctx,
		cancel:    cancel,
	}
}

// RenderTimeout returns the bytes written to the sink when a response times
// out: two line breaks ending whatever was sent so far and an error object.
func RenderTimeout(deadline time.Duration) []byte {
	err := errors.Newf(errors.Timeout, "Timeout: the response took longer than %s", deadline)
	var buf bytes.Buffer
	buf.WriteString("\r\n\r\n")
	_ = dap.PrintError(&buf, errors.DAPCode(err), err.Error())
	return buf.Bytes()
}

// Establish arms the guard. A deadline of zero or less disables it.
func (g *Guard) Establish(deadline time.Duration) error {
	if deadline <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.established {
		return errors.New(errors.Internal, "timeout guard is already established")
	}

	// everything the handler needs is prepared here
	g.payload = RenderTimeout(deadline)
	g.cause = errors.Newf(errors.Timeout, "response timed out after %s", deadline)

	if _, err := g.table.Register(syscall.SIGALRM, g.handle, true); err != nil {
		return err
	}
	g.watchdog.Arm(deadline, func() { g.table.Raise(syscall.SIGALRM) })
	g.established = true
	return nil
}

// Remove disarms the guard. It is a no-op if the guard is not established.
func (g *Guard) Remove() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.established {
		return
	}
	g.watchdog.Disarm()
	g.table.Remove(syscall.SIGALRM)
	g.established = false
}

// Context is cancelled with a Timeout error when the guard fires
func (g *Guard) Context() context.Context {
	return g.ctx
}

// Fired reports whether the deadline passed
func (g *Guard) Fired() bool {
	return g.fired.Load()
}

// handle runs at most once. The write goes straight to the raw sink, the
// response may be in the middle of any write.
func (g *Guard) handle(_ os.Signal) {
	if !g.fired.CompareAndSwap(false, true) {
		return
	}
	_, _ = g.sink.Write(g.payload)
	g.cancel(g.cause)
	g.terminate()
}
