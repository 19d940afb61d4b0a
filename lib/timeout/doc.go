// Package timeout enforces the deadline of a response.
//
// A response that runs past its deadline is not cancelled gracefully. The
// guard writes two line breaks and a DAP error object straight to the raw
// sink, wherever the response currently is, and then terminates it: the
// server closes the connection, a one-shot process exits. Clients detect the
// timeout from the truncated stream.
//
// The package has three parts:
//
//   - SignalTable maps the terminating signals to a stack of handlers. A new
//     handler runs before the one it replaced, which is skipped if the new
//     one was registered with override. A table is an ordinary value; Notify
//     attaches it to the signals the process receives.
//   - IWatchdog schedules the expiry. NewTimerWatchdog uses a timer goroutine
//     that raises SIGALRM on the table.
//   - Guard binds one response sink to a table and a watchdog. Establish
//     renders the error bytes up front so the handler only writes and
//     terminates. Context is cancelled with a Timeout error on expiry for
//     code that checks for cancellation between steps.
package timeout
