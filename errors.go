package agentwire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmora/agentwire/internal/errfmt"
)

// Sentinel errors shared by both dialects.
var (
	// ErrConnectionClosed indicates the child closed its output stream while
	// a call or handshake was still waiting for an answer.
	ErrConnectionClosed = errors.New("agentwire: connection closed")

	// ErrUninitialized indicates a session identifier was requested before
	// any message carrying one had been observed.
	ErrUninitialized = errors.New("agentwire: session id not yet captured")

	// ErrUnavailable indicates the agent binary cannot be started
	// (not on PATH, not executable).
	ErrUnavailable = errors.New("agentwire: binary unavailable")

	// ErrTerminated indicates the client was used after Close or Shutdown.
	ErrTerminated = errors.New("agentwire: client terminated")
)

// IOError reports a stream or process level failure. Op names the failing
// step ("spawn", "stdin pipe", "read", "write").
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return "agentwire: " + e.Op + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

// DecodeError reports a line that could not be interpreted as any known
// message shape. Line holds the raw text exactly as read.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("agentwire: decode %q: %v", errfmt.Truncate(e.Line), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RPCError is an application error reported by the remote side in answer
// to a request.
type RPCError struct {
	Code    int64
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ProtocolError reports a structurally valid message that breaks a handshake
// or correlation expectation.
type ProtocolError struct {
	Op  string
	Msg string
}

func (e *ProtocolError) Error() string {
	return "agentwire: " + e.Op + ": protocol violation: " + e.Msg
}

// ExitError represents a subprocess that exited with a non-zero status.
// Wraps the underlying error to preserve the error chain; consumers can
// errors.As to *exec.ExitError for OS-level detail (signal info, etc.).
//
// Code semantics: positive = exit status, negative (-1) = signal-killed.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "agentwire: exit status " + strconv.Itoa(e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode extracts the exit code from an error chain containing *ExitError.
// Returns (0, false) if the error does not contain an ExitError.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
