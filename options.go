package agentwire

import (
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultBufferSize is the read buffer reserved up front for each client.
// Single lines carrying embedded tool output routinely reach megabytes.
const DefaultBufferSize = 10 << 20

// Options holds resolved configuration shared by every client facade.
// Facades call ResolveOptions to collapse functional options into this struct.
type Options struct {
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// BufferSize is the fixed read buffer capacity in bytes.
	BufferSize int

	// StrictCorrelation turns a response for an id that is not pending
	// into a ProtocolError instead of a logged drop.
	StrictCorrelation bool

	// DrainStderr hands the child's stderr to a goroutine that logs each
	// line at debug level. TakeStderr then returns nil.
	DrainStderr bool

	// SkipVersionCheck disables the startup comparison of the binary's
	// version against the last tested one.
	SkipVersionCheck bool
}

// Option configures a client.
type Option func(*Options)

// ResolveOptions applies functional options over the defaults and returns
// the resolved config. The returned Logger is tagged with a fresh "conn" id.
func ResolveOptions(opts ...Option) Options {
	o := Options{BufferSize: DefaultBufferSize}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.Logger = o.Logger.With("conn", NewConnID())
	return o
}

// WithLogger sets the diagnostics logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithBufferSize sets the read buffer capacity. Values <= 0 are ignored.
func WithBufferSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.BufferSize = n
		}
	}
}

// WithStrictCorrelation makes stray responses fatal to the current call.
func WithStrictCorrelation() Option {
	return func(o *Options) {
		o.StrictCorrelation = true
	}
}

// WithStderrDrain logs the child's stderr instead of leaving it to the caller.
func WithStderrDrain() Option {
	return func(o *Options) {
		o.DrainStderr = true
	}
}

// WithoutVersionCheck skips running "<binary> --version" at start.
func WithoutVersionCheck() Option {
	return func(o *Options) {
		o.SkipVersionCheck = true
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewConnID returns a ULID used to tag one client's log lines.
func NewConnID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
