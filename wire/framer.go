// Package wire frames newline-delimited JSON over a child's standard streams.
//
// The read side comes in two shapes behind [LineReader]: [Reader] reads on
// the caller's goroutine, [Pump] reads on one background goroutine and hands
// lines over a channel so callers can select on a context. Both skip blank
// lines and report end of stream as io.EOF. [Writer] encodes one value per
// line and flushes before returning.
//
// [Decode] is the tolerant decoder shared by both dialects, and [Stream]
// tracks one streaming turn up to its terminal event.
package wire

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmora/agentwire"
)

// MaxLineFactor bounds a single line at this many times the read buffer.
const MaxLineFactor = 8

// ErrLineTooLong is wrapped in the *agentwire.IOError returned for a line
// longer than MaxLineFactor times the buffer size.
var ErrLineTooLong = errors.New("wire: line too long")

// LineReader yields one non-blank line per call, without its terminator.
// End of stream is io.EOF.
type LineReader interface {
	ReadLine(ctx context.Context) ([]byte, error)
}

// Reader is the blocking LineReader. Each call reads on the caller's
// goroutine; ctx is only checked before the read starts.
type Reader struct {
	br  *bufio.Reader
	max int
}

var _ LineReader = (*Reader)(nil)

// NewReader wraps r with a buffer of size bytes reserved up front.
// size <= 0 selects agentwire.DefaultBufferSize. Lines may grow past the
// buffer up to MaxLineFactor times size.
func NewReader(r io.Reader, size int) *Reader {
	if size <= 0 {
		size = agentwire.DefaultBufferSize
	}
	br := bufio.NewReaderSize(r, size)
	return &Reader{br: br, max: br.Size() * MaxLineFactor}
}

// ReadLine returns the next non-blank line. A final line without a trailing
// newline is still returned; io.EOF follows on the next call.
func (r *Reader) ReadLine(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := r.readRaw()
		if len(bytes.TrimSpace(line)) > 0 {
			return bytes.TrimRight(line, "\r\n"), nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, &agentwire.IOError{Op: "read", Err: err}
		}
	}
}

// readRaw reads through the next newline. Lines longer than the buffer are
// assembled into a fresh slice up to r.max; the returned bytes never alias
// the buffer.
func (r *Reader) readRaw() ([]byte, error) {
	var full []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		if len(full)+len(chunk) > r.max {
			return nil, ErrLineTooLong
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			full = append(full, chunk...)
			continue
		}
		if full == nil {
			return bytes.Clone(chunk), err
		}
		return append(full, chunk...), err
	}
}

// Pump is the context-aware LineReader. A single goroutine reads ahead at
// most one line and waits for a consumer; a cancelled ReadLine leaves that
// line in place for the next call.
type Pump struct {
	lines chan readResult
	done  chan struct{}
	once  sync.Once
}

type readResult struct {
	line []byte
	err  error
}

var _ LineReader = (*Pump)(nil)

// NewPump starts the reader goroutine over r. Call Close to release it.
func NewPump(r io.Reader, size int) *Pump {
	p := &Pump{
		lines: make(chan readResult),
		done:  make(chan struct{}),
	}
	go p.run(NewReader(r, size))
	return p
}

func (p *Pump) run(r *Reader) {
	defer close(p.lines)
	for {
		line, err := r.ReadLine(context.Background())
		select {
		case p.lines <- readResult{line: line, err: err}:
		case <-p.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// ReadLine waits for the next line or for ctx to end.
func (p *Pump) ReadLine(ctx context.Context) ([]byte, error) {
	select {
	case <-p.done:
		return nil, agentwire.ErrTerminated
	default:
	}
	select {
	case res, ok := <-p.lines:
		if !ok {
			return nil, io.EOF
		}
		return res.line, res.err
	case <-p.done:
		return nil, agentwire.ErrTerminated
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops handing out lines. The goroutine exits once its pending read
// returns, which happens when the underlying stream is closed.
func (p *Pump) Close() {
	p.once.Do(func() { close(p.done) })
}

// Writer writes one JSON value per line. Writes are serialized and each is
// flushed before WriteLine returns.
type Writer struct {
	mu sync.Mutex
	bw *bufio.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// WriteLine encodes v, appends a newline, writes, and flushes. ctx is only
// checked before the write starts.
func (w *Writer) WriteLine(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: encode %T: %w", v, err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.bw.Write(data); err != nil {
		return &agentwire.IOError{Op: "write", Err: err}
	}
	if err := w.bw.Flush(); err != nil {
		return &agentwire.IOError{Op: "flush", Err: err}
	}
	return nil
}
