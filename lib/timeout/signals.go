package timeout

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("timeout")

// Supported lists the signals a handler can be registered for. These are the
// signals that terminate a process by default.
var Supported = []syscall.Signal{
	syscall.SIGHUP,
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGUSR1,
	syscall.SIGUSR2,
	syscall.SIGPIPE,
	syscall.SIGALRM,
}

// registration is one handler of a signal and the handler it replaced
type registration struct {
	handler  Handler
	override bool
	previous *registration
}

// SignalTable maps signals to a stack of handlers. Raising a signal runs the
// newest handler and then the one it replaced, unless it was registered with
// override.
type SignalTable struct {
	handlers *xsync.MapOf[syscall.Signal, *registration]

	mu      sync.Mutex
	ch      chan os.Signal
	done    chan struct{}
	stopped sync.WaitGroup
}

// NewSignalTable creates an empty table that is not attached to OS signals
func NewSignalTable() *SignalTable {
	return &SignalTable{
		handlers: xsync.NewMapOf[syscall.Signal, *registration](),
	}
}

func isSupported(sig syscall.Signal) bool {
	for _, s := range Supported {
		if s == sig {
			return true
		}
	}
	return false
}

// Register installs h as the current handler of sig and returns the handler
// it replaced (nil if there was none). Unless override is set the replaced
// handler still runs after h.
func (t *SignalTable) Register(sig syscall.Signal, h Handler, override bool) (Handler, error) {
	if !isSupported(sig) {
		return nil, errors.Newf(errors.Internal, "cannot register a handler for unsupported signal %s", sig)
	}
	if h == nil {
		return nil, errors.New(errors.Internal, "cannot register a nil signal handler")
	}

	var previous Handler
	t.handlers.Compute(sig, func(old *registration, loaded bool) (*registration, bool) {
		if loaded {
			previous = old.handler
		}
		return &registration{handler: h, override: override, previous: old}, false
	})
	Logger.Debugf("registered handler for %s (override: %t)", sig, override)
	return previous, nil
}

// Remove unregisters the current handler of sig and returns it. The handler
// it replaced becomes current again.
func (t *SignalTable) Remove(sig syscall.Signal) Handler {
	var removed Handler
	t.handlers.Compute(sig, func(old *registration, loaded bool) (*registration, bool) {
		if !loaded {
			return nil, true
		}
		removed = old.handler
		return old.previous, old.previous == nil
	})
	return removed
}

// Raise runs the handlers of sig synchronously and reports whether any ran
func (t *SignalTable) Raise(sig syscall.Signal) bool {
	r, ok := t.handlers.Load(sig)
	if !ok {
		return false
	}
	for ; r != nil; r = r.previous {
		r.handler(sig)
		if r.override {
			break
		}
	}
	return true
}

// Notify attaches the table to the OS for every signal that has a handler at
// the time of the call. Each of them the process receives is raised on the
// table from a separate goroutine.
func (t *SignalTable) Notify() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ch != nil {
		return
	}

	var sigs []os.Signal
	t.handlers.Range(func(sig syscall.Signal, _ *registration) bool {
		sigs = append(sigs, sig)
		return true
	})
	if len(sigs) == 0 {
		return
	}

	t.ch = make(chan os.Signal, len(Supported))
	t.done = make(chan struct{})
	signal.Notify(t.ch, sigs...)

	t.stopped.Add(1)
	go func() {
		defer t.stopped.Done()
		for {
			select {
			case sig := <-t.ch:
				if s, ok := sig.(syscall.Signal); ok && !t.Raise(s) {
					Logger.Warningf("received %s without a handler", s)
				}
			case <-t.done:
				return
			}
		}
	}()
}

// Close detaches the table from the OS
func (t *SignalTable) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ch == nil {
		return
	}
	signal.Stop(t.ch)
	close(t.done)
	t.stopped.Wait()
	t.ch = nil
}
