// Package jsonrpc correlates requests and responses over newline-delimited
// JSON, the way agent app-servers speak it (no "jsonrpc" version field).
//
// The connection is pull-based: nothing reads the wire unless a caller is
// waiting in [Conn.Call] or [Conn.NextIncoming]. Whoever reads routes each
// message: a response for a pending id goes to that caller, notifications
// and server requests go to one FIFO queue, and responses nobody waits for
// are logged and dropped.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmora/agentwire"
	"github.com/dmora/agentwire/wire"
)

// Conn is a request/response correlator over a line reader and writer.
//
// Call and NextIncoming may be used from several goroutines: one caller at
// a time reads the wire and routes what it reads to the others. With a
// single goroutine the behaviour is the plain sequential loop.
type Conn struct {
	r      wire.LineReader
	w      *wire.Writer
	logger *slog.Logger
	strict bool

	nextID atomic.Int64

	mu      sync.Mutex
	pending map[RequestID]chan Message
	queue   []Message

	// readTok is held by the goroutine currently reading the wire.
	readTok chan struct{}

	eof     chan struct{}
	eofOnce sync.Once
}

// NewConn creates a correlator. Only Logger and StrictCorrelation are read
// from opts.
func NewConn(r wire.LineReader, w *wire.Writer, opts agentwire.Options) *Conn {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		r:       r,
		w:       w,
		logger:  logger,
		strict:  opts.StrictCorrelation,
		pending: make(map[RequestID]chan Message),
		readTok: make(chan struct{}, 1),
		eof:     make(chan struct{}),
	}
}

// Call sends a request with a fresh integer id and waits for its answer.
// Traffic read meanwhile is queued for NextIncoming. A result is decoded
// into result when both are non-nil. Remote errors are *agentwire.RPCError;
// end of stream while waiting is agentwire.ErrConnectionClosed.
//
// If ctx ends first the call is abandoned: a late answer is dropped, and the
// child keeps running. Deciding whether to terminate it is the caller's job.
func (c *Conn) Call(ctx context.Context, method string, params, result any) error {
	id := IntID(c.nextID.Add(1))
	req, err := NewRequest(id, method, params)
	if err != nil {
		return err
	}

	slot := make(chan Message, 1)
	c.mu.Lock()
	c.pending[id] = slot
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.logger.Debug("jsonrpc send", "method", method, "id", id.String())
	if err := c.w.WriteLine(ctx, req); err != nil {
		return fmt.Errorf("jsonrpc: send %s: %w", method, err)
	}

	for {
		select {
		case m := <-slot:
			return c.resolve(method, m, result)
		case c.readTok <- struct{}{}:
			// Someone else may have routed our answer before we got the token.
			select {
			case m := <-slot:
				<-c.readTok
				return c.resolve(method, m, result)
			default:
			}
			m, err := c.read(ctx)
			if err == nil {
				err = c.route(m)
			}
			<-c.readTok
			if err != nil {
				if errors.Is(err, io.EOF) {
					return agentwire.ErrConnectionClosed
				}
				return fmt.Errorf("jsonrpc: %s: %w", method, err)
			}
		case <-c.eof:
			select {
			case m := <-slot:
				return c.resolve(method, m, result)
			default:
				return agentwire.ErrConnectionClosed
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Conn) resolve(method string, m Message, result any) error {
	if m.Kind == KindError {
		return &agentwire.RPCError{Code: m.Error.Code, Message: m.Error.Message, Data: m.Error.Data}
	}
	if result != nil && len(m.Result) > 0 {
		if err := json.Unmarshal(m.Result, result); err != nil {
			return fmt.Errorf("jsonrpc: unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

// NextIncoming returns the oldest queued notification or server request,
// reading the wire only when the queue is empty. End of stream is io.EOF.
func (c *Conn) NextIncoming(ctx context.Context) (Message, error) {
	for {
		if m, ok := c.pop(); ok {
			return m, nil
		}
		select {
		case c.readTok <- struct{}{}:
		case <-c.eof:
			if m, ok := c.pop(); ok {
				return m, nil
			}
			return Message{}, io.EOF
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}

		if m, ok := c.pop(); ok {
			<-c.readTok
			return m, nil
		}
		m, err := c.read(ctx)
		if err == nil {
			err = c.route(m)
		}
		<-c.readTok
		if err != nil {
			return Message{}, err
		}
	}
}

// Pending reports how many messages are queued for NextIncoming.
func (c *Conn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Conn) pop() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return Message{}, false
	}
	m := c.queue[0]
	c.queue[0] = Message{}
	c.queue = c.queue[1:]
	return m, true
}

// read returns the next decoded message. io.EOF marks the connection closed
// for every waiter.
func (c *Conn) read(ctx context.Context) (Message, error) {
	line, err := c.r.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			c.eofOnce.Do(func() { close(c.eof) })
		}
		return Message{}, err
	}
	return wire.Decode[Message](line)
}

// route delivers m to its waiter, the queue, or the floor.
func (c *Conn) route(m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch m.Kind {
	case KindRequest, KindNotification:
		c.logger.Debug("jsonrpc recv", "kind", m.Kind.String(), "method", m.Method)
		c.queue = append(c.queue, m)
		return nil
	}
	if slot, ok := c.pending[m.ID]; ok {
		delete(c.pending, m.ID)
		slot <- m
		return nil
	}
	if c.strict {
		return &agentwire.ProtocolError{Op: "correlate", Msg: "no pending request for " + m.Kind.String() + " id " + m.ID.String()}
	}
	c.logger.Warn("jsonrpc: dropping unmatched message", "kind", m.Kind.String(), "id", m.ID.String(), "reason", c.strayReason(m.ID))
	return nil
}

func (c *Conn) strayReason(id RequestID) string {
	if n, ok := id.Int(); ok && n > 0 && n <= c.nextID.Load() {
		return "already resolved or abandoned"
	}
	return "never issued"
}

// Respond answers a server request.
func (c *Conn) Respond(ctx context.Context, id RequestID, result any) error {
	raw, err := encodeOptional(result)
	if err != nil {
		return fmt.Errorf("jsonrpc: encode response %s: %w", id, err)
	}
	return c.w.WriteLine(ctx, Message{Kind: KindResponse, ID: id, Result: raw})
}

// RespondError answers a server request with an error. data may be nil.
func (c *Conn) RespondError(ctx context.Context, id RequestID, code int64, message string, data any) error {
	raw, err := encodeOptional(data)
	if err != nil {
		return fmt.Errorf("jsonrpc: encode error data %s: %w", id, err)
	}
	return c.w.WriteLine(ctx, Message{
		Kind:  KindError,
		ID:    id,
		Error: &ErrorData{Code: code, Message: message, Data: raw},
	})
}

// Notify sends a notification; nothing answers it.
func (c *Conn) Notify(ctx context.Context, method string, params any) error {
	n, err := NewNotification(method, params)
	if err != nil {
		return err
	}
	return c.w.WriteLine(ctx, n)
}

// Standard error codes for RespondError.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)
