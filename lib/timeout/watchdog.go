package timeout

import (
	"sync"
	"time"
)

type timerWatchdogImpl struct {
	mu    sync.Mutex
	timer *time.Timer
}

// NewTimerWatchdog returns a watchdog that runs fire on a timer goroutine
func NewTimerWatchdog() IWatchdog {
	return &timerWatchdogImpl{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/timeout/interface.go)
// --------------------------------------------------------------------------

func (w *timerWatchdogImpl) Arm(d time.Duration, fire func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, fire)
}

func (w *timerWatchdogImpl) Disarm() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer == nil {
		return false
	}
	stopped := w.timer.Stop()
	w.timer = nil
	return stopped
}
