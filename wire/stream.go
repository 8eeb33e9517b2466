package wire

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync/atomic"

	"github.com/dmora/agentwire"
)

// SessionLatch holds a session identifier that is set at most once.
type SessionLatch struct {
	id atomic.Pointer[string]
}

// Set stores id if nothing has been stored yet. Empty ids are ignored.
// Reports whether this call stored it.
func (l *SessionLatch) Set(id string) bool {
	if id == "" {
		return false
	}
	return l.id.CompareAndSwap(nil, &id)
}

// Get returns the latched id, or agentwire.ErrUninitialized before capture.
func (l *SessionLatch) Get() (string, error) {
	p := l.id.Load()
	if p == nil {
		return "", agentwire.ErrUninitialized
	}
	return *p, nil
}

// StreamConfig describes one streaming dialect.
type StreamConfig[T any] struct {
	// Decode turns one line into an event.
	Decode func([]byte) (T, error)

	// Terminal reports whether an event ends the turn.
	Terminal func(T) bool

	// SessionID extracts an embedded session id, or "".
	SessionID func(T) string

	// Latch receives the first session id observed. Optional.
	Latch *SessionLatch
}

// Stream yields the events of one turn. It is finite: after the terminal
// event every Next returns io.EOF without reading. It is not restartable.
//
// A decode or read failure is returned once and ends the stream. End of
// input before the terminal event is reported once as
// agentwire.ErrConnectionClosed. Context cancellation does not end the
// stream; the caller may retry Next.
type Stream[T any] struct {
	src  LineReader
	cfg  StreamConfig[T]
	done bool
}

// NewStream reads events for one turn from src.
func NewStream[T any](src LineReader, cfg StreamConfig[T]) *Stream[T] {
	return &Stream[T]{src: src, cfg: cfg}
}

// Next returns the next event of the turn, or io.EOF once the turn is over.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if s.done {
		return zero, io.EOF
	}
	line, err := s.src.ReadLine(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return zero, err
		}
		s.done = true
		if errors.Is(err, io.EOF) {
			return zero, agentwire.ErrConnectionClosed
		}
		return zero, err
	}
	v, err := s.cfg.Decode(line)
	if err != nil {
		s.done = true
		return zero, err
	}
	if s.cfg.Latch != nil && s.cfg.SessionID != nil {
		s.cfg.Latch.Set(s.cfg.SessionID(v))
	}
	if s.cfg.Terminal != nil && s.cfg.Terminal(v) {
		s.done = true
	}
	return v, nil
}

// Done reports whether the stream has ended.
func (s *Stream[T]) Done() bool { return s.done }

// All ranges over the remaining events. A failure is yielded once as the
// final pair.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := s.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains the stream into a slice, stopping at the first failure.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for v, err := range s.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
