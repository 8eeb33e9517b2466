// Package proc owns a spawned agent CLI and its three standard streams.
//
// A [Handle] is the sole owner of the child's stdin, stdout, and stderr for
// its lifetime. Liveness is a non-blocking poll: a background reaper waits
// on the child and closes a channel on exit, so [Handle.IsAlive] never
// blocks and [Handle.Terminate] is idempotent.
//
// The streams are plain os.Pipe pairs rather than exec's StdoutPipe, so
// reaping the child never closes the stdout reader before the caller has
// drained the last lines.
package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/dmora/agentwire"
	"github.com/dmora/agentwire/internal/errfmt"
)

// Command describes the child to spawn.
type Command struct {
	// Path is the binary name or path, resolved via exec.LookPath.
	Path string

	// Args are passed after the binary name.
	Args []string

	// Dir is the working directory. Empty inherits the parent's.
	Dir string

	// Env holds overrides merged over the parent environment.
	Env map[string]string
}

// Handle is a running child process.
type Handle struct {
	cmd    *exec.Cmd
	stdin  *os.File
	stdout *os.File
	exit   *exitState

	mu         sync.Mutex
	stderr     *os.File // nil once taken
	stdinDone  bool
	stdoutDone bool

	cleanup runtime.Cleanup
}

// exitState is shared between the Handle and its reaper goroutine. The
// reaper holds no reference to the Handle, so an abandoned Handle can be
// collected and its cleanup can kill the orphaned child.
type exitState struct {
	done chan struct{}
	err  error // set before done closes
}

func (s *exitState) reap(cmd *exec.Cmd) {
	s.err = wrapExitError(cmd.Wait())
	close(s.done)
}

// Start spawns the command with fresh stdin, stdout, and stderr pipes.
// Returns an error wrapping [agentwire.ErrUnavailable] when the binary cannot
// be found, or an [*agentwire.IOError] when a pipe or the spawn fails. Nothing
// is left running on error.
func Start(c Command) (*Handle, error) {
	path, err := exec.LookPath(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", agentwire.ErrUnavailable, c.Path, err)
	}

	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	pipe := func(name string) (r, w *os.File, err error) {
		r, w, err = os.Pipe()
		if err != nil {
			return nil, nil, &agentwire.IOError{Op: name + " pipe", Err: err}
		}
		opened = append(opened, r, w)
		return r, w, nil
	}

	inR, inW, err := pipe("stdin")
	if err != nil {
		closeAll()
		return nil, err
	}
	outR, outW, err := pipe("stdout")
	if err != nil {
		closeAll()
		return nil, err
	}
	errR, errW, err := pipe("stderr")
	if err != nil {
		closeAll()
		return nil, err
	}

	cmd := exec.Command(path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), c.Env)
	}
	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		closeAll()
		return nil, &agentwire.IOError{Op: "spawn " + c.Path, Err: err}
	}

	// The child holds its own copies; the parent keeps only its ends.
	_ = inR.Close()
	_ = outW.Close()
	_ = errW.Close()

	st := &exitState{done: make(chan struct{})}
	go st.reap(cmd)

	h := &Handle{
		cmd:    cmd,
		stdin:  inW,
		stdout: outR,
		stderr: errR,
		exit:   st,
	}
	h.cleanup = runtime.AddCleanup(h, killOrphan, cmd.Process)
	return h, nil
}

// killOrphan is the best-effort backstop for a Handle dropped without
// Terminate. Callers must not rely on it.
func killOrphan(p *os.Process) {
	_ = signalProcess(p, os.Kill)
}

// Stdin returns the write side of the child's standard input.
func (h *Handle) Stdin() io.Writer { return h.stdin }

// Stdout returns the read side of the child's standard output.
func (h *Handle) Stdout() io.Reader { return h.stdout }

// TakeStderr hands over the child's standard error. The first call returns
// the reader; every later call returns nil.
func (h *Handle) TakeStderr() io.ReadCloser {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stderr == nil {
		return nil
	}
	r := h.stderr
	h.stderr = nil
	return r
}

// CloseStdin closes the child's standard input, signalling end of input.
// Safe to call more than once.
func (h *Handle) CloseStdin() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stdinDone {
		return nil
	}
	h.stdinDone = true
	return h.stdin.Close()
}

// PID returns the child's process id.
func (h *Handle) PID() int { return h.cmd.Process.Pid }

// IsAlive reports whether the child has not yet exited. Never blocks.
func (h *Handle) IsAlive() bool {
	select {
	case <-h.exit.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the child has exited and been reaped.
func (h *Handle) Done() <-chan struct{} { return h.exit.done }

// Wait blocks until the child exits. A non-zero exit is reported as
// [*agentwire.ExitError].
func (h *Handle) Wait() error {
	<-h.exit.done
	return h.exit.err
}

// Release closes the parent's ends of stdin, stdout, and stderr. A stderr
// reader already handed out by TakeStderr belongs to its taker and is left
// open. Safe to call more than once.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var errs []error
	if !h.stdinDone {
		h.stdinDone = true
		errs = append(errs, h.stdin.Close())
	}
	if !h.stdoutDone {
		h.stdoutDone = true
		errs = append(errs, h.stdout.Close())
	}
	if h.stderr != nil {
		errs = append(errs, h.stderr.Close())
		h.stderr = nil
	}
	if err := errors.Join(errs...); err != nil {
		return &agentwire.IOError{Op: "release", Err: err}
	}
	return nil
}

// Terminate kills the child and waits for it to be reaped. The parent's
// pipe ends are released on every return. Calling it on an exited child is
// not an error, and repeated calls are no-ops. If ctx ends before the child
// is reaped the kill has still been sent, the reaper keeps running, and
// ctx.Err() is returned.
func (h *Handle) Terminate(ctx context.Context) error {
	h.cleanup.Stop()
	defer func() { _ = h.Release() }()
	if err := signalProcess(h.cmd.Process, os.Kill); err != nil {
		return &agentwire.IOError{Op: "kill", Err: err}
	}
	select {
	case <-h.exit.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// signalProcess sends sig to a process, returning nil if the process
// has already exited (os.ErrProcessDone).
func signalProcess(p *os.Process, sig os.Signal) error {
	err := p.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func wrapExitError(err error) error {
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return err
	}
	code := ee.ExitCode()
	if code == 0 {
		return nil
	}
	return &agentwire.ExitError{Code: code, Err: err}
}

// MergeEnv returns base with overrides applied. Existing keys are replaced in
// place; new keys are appended in sorted order.
func MergeEnv(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if v, ok := overrides[key]; ok {
			if !seen[key] {
				out = append(out, key+"="+v)
				seen[key] = true
			}
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

// DrainStderr logs every non-empty line of r at debug level until r ends.
// Intended to run in its own goroutine on the reader from TakeStderr.
func DrainStderr(r io.Reader, logger *slog.Logger) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), errfmt.MaxLen*16)
	for s.Scan() {
		line := errfmt.Printable(s.Text())
		if strings.TrimSpace(line) == "" {
			continue
		}
		logger.Debug("stderr", "line", line)
	}
}
