package timeout

import (
	"os"
	"time"
)

// Handler is run when a signal is raised on a SignalTable
type Handler func(sig os.Signal)

// IWatchdog calls a function once a duration has passed unless it is
// disarmed before
type IWatchdog interface {
	// Arm schedules fire to run after d. Arming again replaces the pending call.
	Arm(d time.Duration, fire func())
	// Disarm cancels the pending call. It reports whether a call was pending.
	Disarm() bool
}
