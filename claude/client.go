package claude

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dmora/agentwire"
	"github.com/dmora/agentwire/internal/lifecycle"
	"github.com/dmora/agentwire/proc"
	"github.com/dmora/agentwire/version"
	"github.com/dmora/agentwire/wire"
)

// Stream yields the messages of one turn, ending after the result message.
type Stream = wire.Stream[Output]

// PingPrompt is the message Ping sends.
const PingPrompt = "ping - respond with just the word 'pong' and nothing else"

// conn is the engine shared by Client and SyncClient. The two differ only
// in the LineReader they read through.
type conn struct {
	r      wire.LineReader
	w      *wire.Writer
	life   *lifecycle.Guard
	stderr func() io.ReadCloser
	logger *slog.Logger

	latch    wire.SessionLatch
	approval bool
}

func newConn(r wire.LineReader, w io.Writer, p lifecycle.Process, stop func(), logger *slog.Logger) *conn {
	return &conn{
		r:      r,
		w:      wire.NewWriter(w),
		life:   lifecycle.New(p, stop),
		logger: logger,
		stderr: func() io.ReadCloser { return nil },
	}
}

func (c *conn) decode(line []byte) (Output, error) {
	out, err := wire.Decode[Output](line)
	if err != nil {
		c.logger.Warn("undecodable line", "error", err)
		return out, err
	}
	c.logger.Debug("recv", "type", out.Type)
	return out, nil
}

func (c *conn) stream() *Stream {
	return wire.NewStream(c.r, wire.StreamConfig[Output]{
		Decode:    c.decode,
		Terminal:  Output.IsTerminal,
		SessionID: Output.SessionID,
		Latch:     &c.latch,
	})
}

func (c *conn) send(ctx context.Context, v any) error {
	if c.life.Closed() {
		return agentwire.ErrTerminated
	}
	if err := c.w.WriteLine(ctx, v); err != nil {
		return err
	}
	if out, ok := v.(Output); ok {
		c.logger.Debug("sent", "type", out.Type)
	}
	return nil
}

func (c *conn) query(ctx context.Context, in Input) (*Stream, error) {
	sid := in.SessionID
	if sid == "" {
		if latched, err := c.latch.Get(); err == nil {
			sid = latched
		} else {
			sid = uuid.NewString()
		}
	}
	if err := c.send(ctx, in.message(sid)); err != nil {
		return nil, err
	}
	return c.stream(), nil
}

// next reads one message outside any turn. End of input is
// agentwire.ErrConnectionClosed.
func (c *conn) next(ctx context.Context) (Output, error) {
	if c.life.Closed() {
		return Output{}, agentwire.ErrTerminated
	}
	line, err := c.r.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Output{}, agentwire.ErrConnectionClosed
		}
		return Output{}, err
	}
	out, err := c.decode(line)
	if err != nil {
		return Output{}, err
	}
	c.latch.Set(out.SessionID())
	return out, nil
}

func (c *conn) enableToolApproval(ctx context.Context) error {
	if c.approval {
		return nil
	}
	req := newInitializeRequest()
	id := req.ControlRequest.RequestID
	if err := c.send(ctx, req); err != nil {
		return err
	}
	for {
		out, err := c.next(ctx)
		if err != nil {
			return err
		}
		if out.ControlResponse == nil {
			c.logger.Debug("skipping message during initialize", "type", out.Type)
			continue
		}
		resp := out.ControlResponse.Response
		if resp.RequestID != id {
			return &agentwire.ProtocolError{
				Op:  "initialize",
				Msg: fmt.Sprintf("control_response for %q, expected %q", resp.RequestID, id),
			}
		}
		if resp.Subtype != ControlSuccess {
			return &agentwire.ProtocolError{
				Op:  "initialize",
				Msg: fmt.Sprintf("rejected with %s: %s", resp.Subtype, resp.Error),
			}
		}
		c.approval = true
		return nil
	}
}

func (c *conn) respondControl(ctx context.Context, requestID string, result PermissionResult) error {
	msg, err := NewControlSuccess(requestID, result)
	if err != nil {
		return err
	}
	return c.send(ctx, msg)
}

func (c *conn) interrupt(ctx context.Context) error {
	return c.send(ctx, newInterruptRequest())
}

func (c *conn) ping(ctx context.Context) (bool, error) {
	s, err := c.query(ctx, TextInput(PingPrompt))
	if err != nil {
		return false, err
	}
	pong := false
	for out, err := range s.All(ctx) {
		if err != nil {
			return false, err
		}
		if out.Assistant != nil && strings.Contains(strings.ToLower(out.Text()), "pong") {
			pong = true
		}
	}
	return pong, nil
}

// spawn starts the CLI described by b and applies the startup options.
func spawn(ctx context.Context, b Builder, o agentwire.Options) (*proc.Handle, error) {
	cmd, err := b.Command()
	if err != nil {
		return nil, err
	}
	if !o.SkipVersionCheck {
		version.Check(ctx, cmd.Path, version.TestedClaude, o.Logger)
	}
	h, err := proc.Start(cmd)
	if err != nil {
		return nil, err
	}
	o.Logger.Debug("spawned", "binary", cmd.Path, "pid", h.PID())
	return h, nil
}

func attachStderr(c *conn, h *proc.Handle, o agentwire.Options) {
	if o.DrainStderr {
		if r := h.TakeStderr(); r != nil {
			go proc.DrainStderr(r, o.Logger)
		}
		return
	}
	c.stderr = h.TakeStderr
}

// Client is the context-aware client. Reads go through a background
// goroutine so every blocking call honours its context. A Client is not
// safe for concurrent use.
type Client struct {
	c *conn
}

// Start spawns the CLI and returns a client over its streams.
func Start(ctx context.Context, b Builder, opts ...agentwire.Option) (*Client, error) {
	o := agentwire.ResolveOptions(opts...)
	h, err := spawn(ctx, b, o)
	if err != nil {
		return nil, err
	}
	return newClient(h, o), nil
}

// NewClient wraps a running CLI process.
func NewClient(h *proc.Handle, opts ...agentwire.Option) *Client {
	return newClient(h, agentwire.ResolveOptions(opts...))
}

func newClient(h *proc.Handle, o agentwire.Options) *Client {
	pump := wire.NewPump(h.Stdout(), o.BufferSize)
	c := newConn(pump, h.Stdin(), h, pump.Close, o.Logger)
	attachStderr(c, h, o)
	return &Client{c: c}
}

// Query sends text as a user turn and returns the stream of its replies.
// The message is written before Query returns.
func (cl *Client) Query(ctx context.Context, text string) (*Stream, error) {
	return cl.c.query(ctx, TextInput(text))
}

// QueryWith sends in as a user turn.
func (cl *Client) QueryWith(ctx context.Context, in Input) (*Stream, error) {
	return cl.c.query(ctx, in)
}

// SessionID returns the session id captured from the CLI's output, or
// agentwire.ErrUninitialized before any message carried one.
func (cl *Client) SessionID() (string, error) { return cl.c.latch.Get() }

// EnableToolApproval performs the control handshake that makes the CLI
// send can_use_tool requests. Answer them with RespondControl. Calling it
// again after success is a no-op.
func (cl *Client) EnableToolApproval(ctx context.Context) error {
	return cl.c.enableToolApproval(ctx)
}

// Next reads the next message outside a Query stream.
func (cl *Client) Next(ctx context.Context) (Output, error) { return cl.c.next(ctx) }

// Send writes v as one line.
func (cl *Client) Send(ctx context.Context, v any) error { return cl.c.send(ctx, v) }

// RespondControl answers a can_use_tool control request.
func (cl *Client) RespondControl(ctx context.Context, requestID string, result PermissionResult) error {
	return cl.c.respondControl(ctx, requestID, result)
}

// Interrupt asks the CLI to stop the current turn. The turn still ends
// with a result message.
func (cl *Client) Interrupt(ctx context.Context) error { return cl.c.interrupt(ctx) }

// Ping runs a one-word round trip and reports whether the model answered.
func (cl *Client) Ping(ctx context.Context) (bool, error) { return cl.c.ping(ctx) }

// TakeStderr hands over the child's stderr once; later calls return nil.
func (cl *Client) TakeStderr() io.ReadCloser { return cl.c.stderr() }

// Shutdown terminates the child and waits for it to be reaped.
func (cl *Client) Shutdown(ctx context.Context) error { return cl.c.life.Shutdown(ctx) }

// Close terminates the child if it is still running. It is a no-op after
// Shutdown.
func (cl *Client) Close() error { return cl.c.life.Close() }

// SyncClient is the blocking client. Every read runs on the caller's
// goroutine and no call takes a context.
type SyncClient struct {
	c *conn
}

// StartSync spawns the CLI and returns a blocking client.
func StartSync(b Builder, opts ...agentwire.Option) (*SyncClient, error) {
	o := agentwire.ResolveOptions(opts...)
	h, err := spawn(context.Background(), b, o)
	if err != nil {
		return nil, err
	}
	return newSyncClient(h, o), nil
}

// NewSyncClient wraps a running CLI process.
func NewSyncClient(h *proc.Handle, opts ...agentwire.Option) *SyncClient {
	return newSyncClient(h, agentwire.ResolveOptions(opts...))
}

func newSyncClient(h *proc.Handle, o agentwire.Options) *SyncClient {
	c := newConn(wire.NewReader(h.Stdout(), o.BufferSize), h.Stdin(), h, nil, o.Logger)
	attachStderr(c, h, o)
	return &SyncClient{c: c}
}

// SyncStream is a Stream read without contexts.
type SyncStream struct {
	s *Stream
}

// Next returns the next message of the turn, or io.EOF once it is over.
func (s *SyncStream) Next() (Output, error) { return s.s.Next(context.Background()) }

// All ranges over the remaining messages of the turn.
func (s *SyncStream) All() iter.Seq2[Output, error] { return s.s.All(context.Background()) }

// Collect reads the rest of the turn.
func (s *SyncStream) Collect() ([]Output, error) { return s.s.Collect(context.Background()) }

// Query sends text as a user turn and returns the stream of its replies.
func (cl *SyncClient) Query(text string) (*SyncStream, error) {
	return cl.QueryWith(TextInput(text))
}

// QueryWith sends in as a user turn.
func (cl *SyncClient) QueryWith(in Input) (*SyncStream, error) {
	s, err := cl.c.query(context.Background(), in)
	if err != nil {
		return nil, err
	}
	return &SyncStream{s: s}, nil
}

// SessionID returns the captured session id.
func (cl *SyncClient) SessionID() (string, error) { return cl.c.latch.Get() }

// EnableToolApproval performs the control handshake.
func (cl *SyncClient) EnableToolApproval() error {
	return cl.c.enableToolApproval(context.Background())
}

// Next reads the next message outside a Query stream.
func (cl *SyncClient) Next() (Output, error) { return cl.c.next(context.Background()) }

// Send writes v as one line.
func (cl *SyncClient) Send(v any) error { return cl.c.send(context.Background(), v) }

// RespondControl answers a can_use_tool control request.
func (cl *SyncClient) RespondControl(requestID string, result PermissionResult) error {
	return cl.c.respondControl(context.Background(), requestID, result)
}

// Interrupt asks the CLI to stop the current turn.
func (cl *SyncClient) Interrupt() error { return cl.c.interrupt(context.Background()) }

// Ping runs a one-word round trip.
func (cl *SyncClient) Ping() (bool, error) { return cl.c.ping(context.Background()) }

// TakeStderr hands over the child's stderr once.
func (cl *SyncClient) TakeStderr() io.ReadCloser { return cl.c.stderr() }

// Shutdown terminates the child and waits for it to be reaped.
func (cl *SyncClient) Shutdown() error { return cl.c.life.Shutdown(context.Background()) }

// Close terminates the child if it is still running.
func (cl *SyncClient) Close() error { return cl.c.life.Close() }
