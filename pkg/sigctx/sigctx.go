// Package sigctx ties process shutdown to a context.
package sigctx

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Shutdown lists the signals that stop the process gracefully.
var Shutdown = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}

// NotifyContext returns a copy of parent that is done on the first shutdown
// signal. The returned stop func also unregisters the signal handler.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, Shutdown...)
}
