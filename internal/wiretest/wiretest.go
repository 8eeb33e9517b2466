// Package wiretest provides an in-memory remote end for client tests.
//
// A [Peer] plays the agent CLI: it reads the lines a client writes and
// writes lines for the client to read, over two io.Pipe pairs. Sends are
// queued and written in order by a background goroutine, so tests can
// script a whole response sequence without blocking on the client.
package wiretest

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"
	"time"
)

// Timeout bounds every blocking Peer operation.
const Timeout = 5 * time.Second

// Peer is the remote side of a line-oriented connection.
type Peer struct {
	t testing.TB

	clientIn  *io.PipeReader // client reads this
	peerOut   *io.PipeWriter
	clientOut *io.PipeWriter // client writes this
	peerIn    *io.PipeReader

	outbox   chan outbound
	received chan []byte
}

type outbound struct {
	line  []byte
	close bool
}

// New returns a peer plus the reader and writer to hand to the client.
// Pipes are closed on test cleanup.
func New(t testing.TB) *Peer {
	t.Helper()
	clientIn, peerOut := io.Pipe()
	peerIn, clientOut := io.Pipe()
	p := &Peer{
		t:         t,
		clientIn:  clientIn,
		peerOut:   peerOut,
		clientOut: clientOut,
		peerIn:    peerIn,
		outbox:    make(chan outbound, 256),
		received:  make(chan []byte, 256),
	}
	go p.writeLoop()
	go p.readLoop()
	t.Cleanup(func() {
		_ = peerOut.Close()
		_ = peerIn.Close()
		_ = clientOut.Close()
	})
	return p
}

// ClientReader is what the client reads from (the child's stdout).
func (p *Peer) ClientReader() io.Reader { return p.clientIn }

// ClientWriter is what the client writes to (the child's stdin).
func (p *Peer) ClientWriter() io.Writer { return p.clientOut }

func (p *Peer) writeLoop() {
	for out := range p.outbox {
		if out.close {
			_ = p.peerOut.Close()
			return
		}
		if _, err := p.peerOut.Write(out.line); err != nil {
			return
		}
	}
}

func (p *Peer) readLoop() {
	defer close(p.received)
	r := bufio.NewReader(p.peerIn)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			p.received <- line
		}
		if err != nil {
			return
		}
	}
}

// SendRaw queues line followed by a newline.
func (p *Peer) SendRaw(line string) {
	p.outbox <- outbound{line: []byte(line + "\n")}
}

// Send queues v encoded as one JSON line.
func (p *Peer) Send(v any) {
	p.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		p.t.Fatalf("wiretest: marshal: %v", err)
	}
	p.outbox <- outbound{line: append(data, '\n')}
}

// Close ends the client's input after every queued line is written.
func (p *Peer) Close() {
	p.outbox <- outbound{close: true}
}

// Recv returns the next line the client wrote, including its newline.
func (p *Peer) Recv() []byte {
	p.t.Helper()
	select {
	case line, ok := <-p.received:
		if !ok {
			p.t.Fatal("wiretest: client closed its output")
		}
		return line
	case <-time.After(Timeout):
		p.t.Fatal("wiretest: timed out waiting for client write")
	}
	return nil
}

// RecvJSON decodes the next line the client wrote into v.
func (p *Peer) RecvJSON(v any) {
	p.t.Helper()
	line := p.Recv()
	if err := json.Unmarshal(line, v); err != nil {
		p.t.Fatalf("wiretest: decode %q: %v", line, err)
	}
}

// RecvMap decodes the next client line into a generic map.
func (p *Peer) RecvMap() map[string]any {
	p.t.Helper()
	var m map[string]any
	p.RecvJSON(&m)
	return m
}
