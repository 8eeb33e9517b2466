package codex

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/dmora/agentwire"
	"github.com/dmora/agentwire/internal/lifecycle"
	"github.com/dmora/agentwire/jsonrpc"
	"github.com/dmora/agentwire/proc"
	"github.com/dmora/agentwire/version"
	"github.com/dmora/agentwire/wire"
)

// conn is the engine shared by Client and SyncClient.
type conn struct {
	rpc    *jsonrpc.Conn
	life   *lifecycle.Guard
	stderr func() io.ReadCloser
	logger *slog.Logger
}

func newConn(r wire.LineReader, w io.Writer, p lifecycle.Process, stop func(), o agentwire.Options) *conn {
	return &conn{
		rpc:    jsonrpc.NewConn(r, wire.NewWriter(w), o),
		life:   lifecycle.New(p, stop),
		logger: o.Logger,
		stderr: func() io.ReadCloser { return nil },
	}
}

func (c *conn) call(ctx context.Context, method string, params, result any) error {
	if c.life.Closed() {
		return agentwire.ErrTerminated
	}
	return c.rpc.Call(ctx, method, params, result)
}

func (c *conn) initialize(ctx context.Context, p InitializeParams) (InitializeResponse, error) {
	var resp InitializeResponse
	if err := c.call(ctx, MethodInitialize, p, &resp); err != nil {
		return resp, err
	}
	c.logger.Debug("initialized", "user_agent", resp.UserAgent)
	return resp, c.notify(ctx, MethodInitialized, nil)
}

func (c *conn) threadStart(ctx context.Context, p ThreadStartParams) (ThreadStartResponse, error) {
	var resp ThreadStartResponse
	if err := c.call(ctx, MethodThreadStart, p, &resp); err != nil {
		return resp, err
	}
	if resp.ID() == "" {
		return resp, &agentwire.ProtocolError{Op: MethodThreadStart, Msg: "response has no thread id"}
	}
	return resp, nil
}

func (c *conn) turnStart(ctx context.Context, p TurnStartParams) (TurnStartResponse, error) {
	var resp TurnStartResponse
	err := c.call(ctx, MethodTurnStart, p, &resp)
	return resp, err
}

func (c *conn) nextMessage(ctx context.Context) (ServerMessage, error) {
	if c.life.Closed() {
		return ServerMessage{}, agentwire.ErrTerminated
	}
	m, err := c.rpc.NextIncoming(ctx)
	if err != nil {
		return ServerMessage{}, err
	}
	return serverMessage(m), nil
}

func (c *conn) messages(ctx context.Context) iter.Seq2[ServerMessage, error] {
	return func(yield func(ServerMessage, error) bool) {
		for {
			m, err := c.nextMessage(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(m, err) || err != nil {
				return
			}
		}
	}
}

func (c *conn) respond(ctx context.Context, id jsonrpc.RequestID, result any) error {
	if c.life.Closed() {
		return agentwire.ErrTerminated
	}
	return c.rpc.Respond(ctx, id, result)
}

func (c *conn) respondError(ctx context.Context, id jsonrpc.RequestID, code int64, message string, data any) error {
	if c.life.Closed() {
		return agentwire.ErrTerminated
	}
	return c.rpc.RespondError(ctx, id, code, message, data)
}

func (c *conn) notify(ctx context.Context, method string, params any) error {
	if c.life.Closed() {
		return agentwire.ErrTerminated
	}
	return c.rpc.Notify(ctx, method, params)
}

func spawn(ctx context.Context, a AppServer, o agentwire.Options) (*proc.Handle, error) {
	cmd, err := a.Command()
	if err != nil {
		return nil, err
	}
	return start(ctx, cmd, o)
}

func start(ctx context.Context, cmd proc.Command, o agentwire.Options) (*proc.Handle, error) {
	if !o.SkipVersionCheck {
		version.Check(ctx, cmd.Path, version.TestedCodex, o.Logger)
	}
	h, err := proc.Start(cmd)
	if err != nil {
		return nil, err
	}
	o.Logger.Debug("spawned", "binary", cmd.Path, "pid", h.PID())
	return h, nil
}

// attachStderr either drains stderr into the log or leaves it for
// TakeStderr, and returns the accessor to use.
func attachStderr(h *proc.Handle, o agentwire.Options) func() io.ReadCloser {
	if o.DrainStderr {
		if r := h.TakeStderr(); r != nil {
			go proc.DrainStderr(r, o.Logger)
		}
		return func() io.ReadCloser { return nil }
	}
	return h.TakeStderr
}

// Client is the context-aware app-server client. Reads go through a
// background goroutine so every blocking call honours its context.
//
// Call, NextMessage and the typed requests may run on different
// goroutines; whichever is reading routes what it reads. Writes are
// serialized.
type Client struct {
	c *conn
}

// Start spawns the app-server and performs the initialize handshake with
// DefaultInitializeParams. On failure the child is terminated.
func Start(ctx context.Context, a AppServer, opts ...agentwire.Option) (*Client, error) {
	cl, err := Spawn(ctx, a, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := cl.Initialize(ctx, DefaultInitializeParams()); err != nil {
		_ = cl.Close()
		return nil, err
	}
	return cl, nil
}

// Spawn starts the app-server without initializing it. Call Initialize
// before anything else.
func Spawn(ctx context.Context, a AppServer, opts ...agentwire.Option) (*Client, error) {
	o := agentwire.ResolveOptions(opts...)
	h, err := spawn(ctx, a, o)
	if err != nil {
		return nil, err
	}
	return newClient(h, o), nil
}

// NewClient wraps a running app-server process. It does not initialize.
func NewClient(h *proc.Handle, opts ...agentwire.Option) *Client {
	return newClient(h, agentwire.ResolveOptions(opts...))
}

func newClient(h *proc.Handle, o agentwire.Options) *Client {
	pump := wire.NewPump(h.Stdout(), o.BufferSize)
	c := newConn(pump, h.Stdin(), h, pump.Close, o)
	c.stderr = attachStderr(h, o)
	return &Client{c: c}
}

// Initialize performs the handshake and sends the "initialized"
// notification.
func (cl *Client) Initialize(ctx context.Context, p InitializeParams) (InitializeResponse, error) {
	return cl.c.initialize(ctx, p)
}

// ThreadStart creates a thread.
func (cl *Client) ThreadStart(ctx context.Context, p ThreadStartParams) (ThreadStartResponse, error) {
	return cl.c.threadStart(ctx, p)
}

// ThreadArchive archives a thread.
func (cl *Client) ThreadArchive(ctx context.Context, threadID string) error {
	return cl.c.call(ctx, MethodThreadArchive, ThreadArchiveParams{ThreadID: threadID}, nil)
}

// TurnStart starts a turn. The turn's output arrives through NextMessage
// and ends with a turn/completed notification.
func (cl *Client) TurnStart(ctx context.Context, p TurnStartParams) (TurnStartResponse, error) {
	return cl.c.turnStart(ctx, p)
}

// TurnInterrupt asks the server to stop the thread's running turn.
func (cl *Client) TurnInterrupt(ctx context.Context, threadID string) error {
	return cl.c.call(ctx, MethodTurnInterrupt, TurnInterruptParams{ThreadID: threadID}, nil)
}

// TurnSteer adds input to the running turn.
func (cl *Client) TurnSteer(ctx context.Context, p TurnSteerParams) error {
	return cl.c.call(ctx, MethodTurnSteer, p, nil)
}

// Call sends any request and decodes its result into result.
func (cl *Client) Call(ctx context.Context, method string, params, result any) error {
	return cl.c.call(ctx, method, params, result)
}

// NextMessage returns the next notification or server request, oldest
// first. End of input is io.EOF.
func (cl *Client) NextMessage(ctx context.Context) (ServerMessage, error) {
	return cl.c.nextMessage(ctx)
}

// Messages ranges over NextMessage until end of input.
func (cl *Client) Messages(ctx context.Context) iter.Seq2[ServerMessage, error] {
	return cl.c.messages(ctx)
}

// Respond answers a server request.
func (cl *Client) Respond(ctx context.Context, id jsonrpc.RequestID, result any) error {
	return cl.c.respond(ctx, id, result)
}

// RespondError answers a server request with an error.
func (cl *Client) RespondError(ctx context.Context, id jsonrpc.RequestID, code int64, message string, data any) error {
	return cl.c.respondError(ctx, id, code, message, data)
}

// RespondApproval answers a command or file change approval request.
func (cl *Client) RespondApproval(ctx context.Context, id jsonrpc.RequestID, d ApprovalDecision) error {
	return cl.c.respond(ctx, id, ApprovalResponse{Decision: d})
}

// Notify sends a client notification.
func (cl *Client) Notify(ctx context.Context, method string, params any) error {
	return cl.c.notify(ctx, method, params)
}

// TakeStderr hands over the child's stderr once; later calls return nil.
func (cl *Client) TakeStderr() io.ReadCloser { return cl.c.stderr() }

// Shutdown terminates the child and waits for it to be reaped.
func (cl *Client) Shutdown(ctx context.Context) error { return cl.c.life.Shutdown(ctx) }

// Close terminates the child if it is still running.
func (cl *Client) Close() error { return cl.c.life.Close() }

// SyncClient is the blocking app-server client.
type SyncClient struct {
	c *conn
}

// StartSync spawns the app-server and initializes it.
func StartSync(a AppServer, opts ...agentwire.Option) (*SyncClient, error) {
	o := agentwire.ResolveOptions(opts...)
	h, err := spawn(context.Background(), a, o)
	if err != nil {
		return nil, err
	}
	cl := newSyncClient(h, o)
	if _, err := cl.Initialize(DefaultInitializeParams()); err != nil {
		_ = cl.Close()
		return nil, err
	}
	return cl, nil
}

// NewSyncClient wraps a running app-server process. It does not
// initialize.
func NewSyncClient(h *proc.Handle, opts ...agentwire.Option) *SyncClient {
	return newSyncClient(h, agentwire.ResolveOptions(opts...))
}

func newSyncClient(h *proc.Handle, o agentwire.Options) *SyncClient {
	c := newConn(wire.NewReader(h.Stdout(), o.BufferSize), h.Stdin(), h, nil, o)
	c.stderr = attachStderr(h, o)
	return &SyncClient{c: c}
}

func (cl *SyncClient) Initialize(p InitializeParams) (InitializeResponse, error) {
	return cl.c.initialize(context.Background(), p)
}

func (cl *SyncClient) ThreadStart(p ThreadStartParams) (ThreadStartResponse, error) {
	return cl.c.threadStart(context.Background(), p)
}

func (cl *SyncClient) ThreadArchive(threadID string) error {
	return cl.c.call(context.Background(), MethodThreadArchive, ThreadArchiveParams{ThreadID: threadID}, nil)
}

func (cl *SyncClient) TurnStart(p TurnStartParams) (TurnStartResponse, error) {
	return cl.c.turnStart(context.Background(), p)
}

func (cl *SyncClient) TurnInterrupt(threadID string) error {
	return cl.c.call(context.Background(), MethodTurnInterrupt, TurnInterruptParams{ThreadID: threadID}, nil)
}

func (cl *SyncClient) TurnSteer(p TurnSteerParams) error {
	return cl.c.call(context.Background(), MethodTurnSteer, p, nil)
}

func (cl *SyncClient) Call(method string, params, result any) error {
	return cl.c.call(context.Background(), method, params, result)
}

// NextMessage returns the next notification or server request. End of
// input is io.EOF.
func (cl *SyncClient) NextMessage() (ServerMessage, error) {
	return cl.c.nextMessage(context.Background())
}

func (cl *SyncClient) Messages() iter.Seq2[ServerMessage, error] {
	return cl.c.messages(context.Background())
}

func (cl *SyncClient) Respond(id jsonrpc.RequestID, result any) error {
	return cl.c.respond(context.Background(), id, result)
}

func (cl *SyncClient) RespondError(id jsonrpc.RequestID, code int64, message string, data any) error {
	return cl.c.respondError(context.Background(), id, code, message, data)
}

func (cl *SyncClient) RespondApproval(id jsonrpc.RequestID, d ApprovalDecision) error {
	return cl.c.respond(context.Background(), id, ApprovalResponse{Decision: d})
}

func (cl *SyncClient) Notify(method string, params any) error {
	return cl.c.notify(context.Background(), method, params)
}

func (cl *SyncClient) TakeStderr() io.ReadCloser { return cl.c.stderr() }

func (cl *SyncClient) Shutdown() error { return cl.c.life.Shutdown(context.Background()) }

func (cl *SyncClient) Close() error { return cl.c.life.Close() }
