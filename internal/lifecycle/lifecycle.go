// Package lifecycle implements the disposal rules every client follows:
// Shutdown terminates and reaps the child once, Close terminates only a
// child that is still running and otherwise releases its pipes, and
// neither does anything after the other.
package lifecycle

import (
	"context"
	"sync/atomic"
)

// Process is the part of a child a client disposes of. *proc.Handle
// satisfies it.
type Process interface {
	IsAlive() bool
	Terminate(ctx context.Context) error
	Release() error
}

// Guard owns a child's disposal.
type Guard struct {
	p      Process
	stop   func()
	closed atomic.Bool
}

// New returns a guard over p. stop, if non-nil, runs once before the child
// is terminated; clients use it to release their reader goroutine.
func New(p Process, stop func()) *Guard {
	if stop == nil {
		stop = func() {}
	}
	return &Guard{p: p, stop: stop}
}

// Closed reports whether Shutdown or Close has run.
func (g *Guard) Closed() bool { return g.closed.Load() }

// Shutdown terminates the child and waits for it to be reaped. Later
// calls return nil.
func (g *Guard) Shutdown(ctx context.Context) error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	g.stop()
	return g.p.Terminate(ctx)
}

// Close terminates the child if it is still running. An exited child only
// has its pipe ends released.
func (g *Guard) Close() error {
	if g.closed.Load() {
		return nil
	}
	if g.p.IsAlive() {
		return g.Shutdown(context.Background())
	}
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	g.stop()
	return g.p.Release()
}
