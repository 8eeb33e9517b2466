package codex

import (
	"context"
	"io"
	"iter"
	"log/slog"

	"github.com/dmora/agentwire"
	"github.com/dmora/agentwire/internal/lifecycle"
	"github.com/dmora/agentwire/wire"
)

// ExecSession is one "codex exec --json" run. Its events form a single
// turn that ends with turn.completed or turn.failed. Resume the thread with
// another Exec using ExecCommand.Resume set to ThreadID.
type ExecSession struct {
	stream *wire.Stream[ThreadEvent]
	latch  wire.SessionLatch
	life   *lifecycle.Guard
	stderr func() io.ReadCloser
	logger *slog.Logger
}

// Exec runs prompt and returns the stream of its events. The child's stdin
// is closed; exec takes no further input.
func Exec(ctx context.Context, e ExecCommand, prompt string, opts ...agentwire.Option) (*ExecSession, error) {
	o := agentwire.ResolveOptions(opts...)
	cmd, err := e.Command(prompt)
	if err != nil {
		return nil, err
	}
	h, err := start(ctx, cmd, o)
	if err != nil {
		return nil, err
	}
	if err := h.CloseStdin(); err != nil {
		o.Logger.Debug("close stdin", "error", err)
	}
	pump := wire.NewPump(h.Stdout(), o.BufferSize)
	s := newExecSession(pump, h, pump.Close, o.Logger)
	s.stderr = attachStderr(h, o)
	return s, nil
}

func newExecSession(r wire.LineReader, p lifecycle.Process, stop func(), logger *slog.Logger) *ExecSession {
	s := &ExecSession{
		life:   lifecycle.New(p, stop),
		logger: logger,
		stderr: func() io.ReadCloser { return nil },
	}
	s.stream = wire.NewStream(r, wire.StreamConfig[ThreadEvent]{
		Decode:    s.decode,
		Terminal:  ThreadEvent.IsTerminal,
		SessionID: ThreadEvent.SessionID,
		Latch:     &s.latch,
	})
	return s
}

func (s *ExecSession) decode(line []byte) (ThreadEvent, error) {
	ev, err := wire.Decode[ThreadEvent](line)
	if err != nil {
		s.logger.Warn("undecodable line", "error", err)
		return ev, err
	}
	s.logger.Debug("recv", "type", ev.Type)
	return ev, nil
}

// ThreadID returns the id from thread.started, or agentwire.ErrUninitialized
// before it has been read.
func (s *ExecSession) ThreadID() (string, error) { return s.latch.Get() }

// Next returns the next event, or io.EOF once the turn is over.
func (s *ExecSession) Next(ctx context.Context) (ThreadEvent, error) {
	if s.life.Closed() {
		return ThreadEvent{}, agentwire.ErrTerminated
	}
	return s.stream.Next(ctx)
}

// All ranges over the remaining events.
func (s *ExecSession) All(ctx context.Context) iter.Seq2[ThreadEvent, error] {
	return func(yield func(ThreadEvent, error) bool) {
		if s.life.Closed() {
			yield(ThreadEvent{}, agentwire.ErrTerminated)
			return
		}
		for ev, err := range s.stream.All(ctx) {
			if !yield(ev, err) {
				return
			}
		}
	}
}

// Collect reads the rest of the turn.
func (s *ExecSession) Collect(ctx context.Context) ([]ThreadEvent, error) {
	if s.life.Closed() {
		return nil, agentwire.ErrTerminated
	}
	return s.stream.Collect(ctx)
}

// Done reports whether the turn has ended.
func (s *ExecSession) Done() bool { return s.stream.Done() }

// TakeStderr hands over the child's stderr once; later calls return nil.
func (s *ExecSession) TakeStderr() io.ReadCloser { return s.stderr() }

// Shutdown terminates the child and waits for it to be reaped.
func (s *ExecSession) Shutdown(ctx context.Context) error { return s.life.Shutdown(ctx) }

// Close terminates the child if it is still running. An exec child exits on
// its own after the turn, so Close after a finished turn usually has
// nothing to kill.
func (s *ExecSession) Close() error { return s.life.Close() }
