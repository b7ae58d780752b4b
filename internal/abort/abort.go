// Package abort implements a process-wide cooperative abort flag: a signal
// handler sets it and forcibly closes stdin to unblock any in-progress
// credential prompt; copy and walk loops poll it at coarse checkpoints and
// return AbortRequested.
package abort

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// Flag is a process-wide, signal-settable cooperative abort flag.
type Flag struct {
	requested atomic.Bool
}

// New returns an unset Flag.
func New() *Flag {
	return &Flag{}
}

// Requested reports whether an abort has been requested.
func (f *Flag) Requested() bool {
	return f.requested.Load()
}

// Set marks the flag as requested. Idempotent.
func (f *Flag) Set() {
	f.requested.Store(true)
}

// Reset clears the flag; used between independent operations in the same
// process (e.g. a long-running daemon mode), not mid-operation.
func (f *Flag) Reset() {
	f.requested.Store(false)
}

// CheckPoint returns AbortRequested if the flag is set, nil otherwise. The
// copy and walk loops call this at each checkpoint: start of each 64-KiB
// chunk, start of each metadata block, start of each logical-volume walk.
func (f *Flag) CheckPoint() error {
	if f.Requested() {
		return types.New(types.KindAbortRequested, "abort.CheckPoint", "operation aborted")
	}
	return nil
}

// WireSignals installs a handler for SIGINT/SIGTERM that sets f and
// forcibly closes stdin, to unblock any in-progress credential prompt in
// the Unlocker. It returns a function that stops listening; callers
// should defer it.
func WireSignals(f *Flag) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			f.Set()
			_ = os.Stdin.Close()
		case <-done:
		}
	}()

	return func() {
		close(done)
		signal.Stop(ch)
	}
}
