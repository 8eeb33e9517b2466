package wire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmora/agentwire"
)

const testTimeout = 5 * time.Second

func readAll(t *testing.T, r LineReader) []string {
	t.Helper()
	var out []string
	for {
		line, err := r.ReadLine(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, string(line))
	}
}

func TestReader_SkipsBlankLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", `{"a":1}` + "\n", []string{`{"a":1}`}},
		{"leading blanks", "\n\n" + `{"a":1}` + "\n", []string{`{"a":1}`}},
		{"whitespace only lines", "  \n\t\n" + `{"a":1}` + "\n   \n", []string{`{"a":1}`}},
		{"crlf", `{"a":1}` + "\r\n" + `{"b":2}` + "\r\n", []string{`{"a":1}`, `{"b":2}`}},
		{"no trailing newline", `{"a":1}` + "\n" + `{"b":2}`, []string{`{"a":1}`, `{"b":2}`}},
		{"empty", "", nil},
		{"only blanks", "\n \n\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input), 0)
			assert.Equal(t, tt.want, readAll(t, r))
		})
	}
}

func TestReader_EOFIsSticky(t *testing.T) {
	r := NewReader(strings.NewReader("x\n"), 0)
	_, err := r.ReadLine(context.Background())
	require.NoError(t, err)
	for range 3 {
		_, err = r.ReadLine(context.Background())
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestReader_LineOverLimit(t *testing.T) {
	long := strings.Repeat("x", 16*MaxLineFactor+1)
	r := NewReader(strings.NewReader(long+"\nshort\n"), 16)

	_, err := r.ReadLine(context.Background())
	var ioErr *agentwire.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestReader_LineLongerThanBuffer(t *testing.T) {
	long := strings.Repeat("x", 100)
	r := NewReader(strings.NewReader(long+"\nshort\n"), 16)
	assert.Equal(t, []string{long, "short"}, readAll(t, r))
}

func TestReader_LinesDoNotAliasBuffer(t *testing.T) {
	r := NewReader(strings.NewReader("first\nsecond\n"), 16)
	a, err := r.ReadLine(context.Background())
	require.NoError(t, err)
	_, err = r.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", string(a))
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestReader_ReadErrorIsIOError(t *testing.T) {
	r := NewReader(failingReader{err: errors.New("broken pipe")}, 0)
	_, err := r.ReadLine(context.Background())
	var ioErr *agentwire.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
}

func TestReader_CancelledContext(t *testing.T) {
	r := NewReader(strings.NewReader("x\n"), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.ReadLine(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPump_DeliversInOrder(t *testing.T) {
	p := NewPump(strings.NewReader("a\n\nb\nc\n"), 0)
	defer p.Close()
	assert.Equal(t, []string{"a", "b", "c"}, readAll(t, p))
}

func TestPump_CancelDoesNotLoseLine(t *testing.T) {
	pr, pw := io.Pipe()
	p := NewPump(pr, 0)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.ReadLine(ctx)
	require.ErrorIs(t, err, context.Canceled)

	go func() {
		_, _ = io.WriteString(pw, "kept\n")
		_ = pw.Close()
	}()

	ctx, cancel = context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	line, err := p.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(line))

	_, err = p.ReadLine(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPump_ReadAfterClose(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	p := NewPump(pr, 0)
	p.Close()
	p.Close()
	_, err := p.ReadLine(context.Background())
	assert.ErrorIs(t, err, agentwire.ErrTerminated)
}

func TestWriter_OneLinePerValue(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	ctx := context.Background()

	require.NoError(t, w.WriteLine(ctx, map[string]string{"text": "multi\nline"}))
	require.NoError(t, w.WriteLine(ctx, []int{1, 2}))

	assert.Equal(t, `{"text":"multi\nline"}`+"\n[1,2]\n", buf.String())
}

// flushRecorder records whether data reached the underlying writer, which
// only happens on Flush for small payloads.
type flushRecorder struct{ writes int }

func (f *flushRecorder) Write(p []byte) (int, error) {
	f.writes++
	return len(p), nil
}

func TestWriter_FlushesBeforeReturn(t *testing.T) {
	rec := &flushRecorder{}
	w := NewWriter(rec)
	require.NoError(t, w.WriteLine(context.Background(), "x"))
	assert.Equal(t, 1, rec.writes)
}

func TestWriter_EncodeError(t *testing.T) {
	w := NewWriter(io.Discard)
	err := w.WriteLine(context.Background(), make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wire: encode")
}

func TestWriter_WriteErrorIsIOError(t *testing.T) {
	pr, pw := io.Pipe()
	_ = pr.Close()
	w := NewWriter(pw)
	err := w.WriteLine(context.Background(), "x")
	var ioErr *agentwire.IOError
	require.ErrorAs(t, err, &ioErr)
}
