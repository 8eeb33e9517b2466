package codex

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmora/agentwire/proc"
)

// DefaultBinary is the executable looked up on PATH when no binary is set.
const DefaultBinary = "codex"

// SandboxMode is the --sandbox policy of an exec run.
type SandboxMode string

const (
	SandboxReadOnly       SandboxMode = "read-only"
	SandboxWorkspaceWrite SandboxMode = "workspace-write"
	SandboxFullAccess     SandboxMode = "danger-full-access"
)

func (m SandboxMode) Known() bool {
	switch m {
	case SandboxReadOnly, SandboxWorkspaceWrite, SandboxFullAccess:
		return true
	}
	return false
}

// ReasoningEffort sets model_reasoning_effort.
type ReasoningEffort string

const (
	EffortMinimal ReasoningEffort = "minimal"
	EffortLow     ReasoningEffort = "low"
	EffortMedium  ReasoningEffort = "medium"
	EffortHigh    ReasoningEffort = "high"
	EffortXHigh   ReasoningEffort = "xhigh"
)

func (e ReasoningEffort) Known() bool {
	switch e {
	case EffortMinimal, EffortLow, EffortMedium, EffortHigh, EffortXHigh:
		return true
	}
	return false
}

// ApprovalMode sets approval_policy: when the agent asks before acting.
type ApprovalMode string

const (
	ApprovalNever     ApprovalMode = "never"
	ApprovalOnRequest ApprovalMode = "on-request"
	ApprovalOnFailure ApprovalMode = "on-failure"
	ApprovalUntrusted ApprovalMode = "untrusted"
)

func (m ApprovalMode) Known() bool {
	switch m {
	case ApprovalNever, ApprovalOnRequest, ApprovalOnFailure, ApprovalUntrusted:
		return true
	}
	return false
}

// AppServer describes how to launch "codex app-server" over stdio.
type AppServer struct {
	// Binary is the executable name or path. Default "codex".
	Binary string
	Dir    string
	Env    map[string]string

	// Config holds -c key=value overrides, emitted in key order. Values
	// are parsed by the CLI as TOML, falling back to a plain string.
	Config map[string]string
}

// Args returns the command line arguments, excluding the binary.
func (a AppServer) Args() ([]string, error) {
	if err := checkArgs(a.Binary, a.Config); err != nil {
		return nil, err
	}
	args := []string{"app-server"}
	args = appendConfig(args, a.Config)
	return append(args, "--listen", "stdio://"), nil
}

// Command resolves the description into a process description.
func (a AppServer) Command() (proc.Command, error) {
	args, err := a.Args()
	if err != nil {
		return proc.Command{}, err
	}
	return proc.Command{Path: binary(a.Binary), Args: args, Dir: a.Dir, Env: a.Env}, nil
}

// ExecCommand describes a one-shot "codex exec --json" run.
type ExecCommand struct {
	Binary string
	Dir    string
	Env    map[string]string

	Model           string
	ReasoningEffort ReasoningEffort
	ApprovalPolicy  ApprovalMode

	// Sandbox and FullAuto apply to fresh runs; a resumed thread keeps the
	// sandbox it started with. FullAuto alone is allowed on resume.
	Sandbox  SandboxMode
	FullAuto bool

	SkipGitRepoCheck bool
	Ephemeral        bool

	// Profile and OutputSchema are fresh-run only.
	Profile      string
	OutputSchema string

	// AddDirs are extra writable directories. Must be absolute.
	AddDirs []string
	Config  map[string]string

	// Resume continues the thread with this id via "exec resume".
	Resume string
}

// Args returns the arguments for running prompt, excluding the binary.
// A fresh run needs a prompt; a resumed one may omit it.
func (e ExecCommand) Args(prompt string) ([]string, error) {
	if err := e.validate(prompt); err != nil {
		return nil, err
	}
	args := []string{"exec"}
	if e.Resume != "" {
		args = append(args, "resume")
	}
	args = append(args, "--json")
	if e.Resume == "" {
		args = appendFlag(args, "-p", e.Profile)
		args = appendFlag(args, "--output-schema", e.OutputSchema)
	}
	args = appendFlag(args, "-m", e.Model)
	if e.Ephemeral {
		args = append(args, "--ephemeral")
	}
	if e.SkipGitRepoCheck {
		args = append(args, "--skip-git-repo-check")
	}
	args = appendConfig(args, e.Config)
	if e.ReasoningEffort != "" {
		args = append(args, "-c", "model_reasoning_effort="+string(e.ReasoningEffort))
	}
	if e.ApprovalPolicy != "" {
		args = append(args, "-c", "approval_policy="+string(e.ApprovalPolicy))
	}
	for _, dir := range e.AddDirs {
		args = append(args, "--add-dir", dir)
	}
	if e.Sandbox != "" {
		args = append(args, "--sandbox", string(e.Sandbox))
	}
	if e.FullAuto {
		args = append(args, "--full-auto")
	}

	// Everything after -- is positional, so a prompt starting with "-" is
	// not read as a flag.
	args = append(args, "--")
	if e.Resume != "" {
		args = append(args, e.Resume)
	}
	if prompt != "" {
		args = append(args, prompt)
	}
	return args, nil
}

// Command resolves the run of prompt into a process description.
func (e ExecCommand) Command(prompt string) (proc.Command, error) {
	args, err := e.Args(prompt)
	if err != nil {
		return proc.Command{}, err
	}
	return proc.Command{Path: binary(e.Binary), Args: args, Dir: e.Dir, Env: e.Env}, nil
}

func (e ExecCommand) validate(prompt string) error {
	if e.Resume == "" && prompt == "" {
		return errors.New("codex: exec needs a prompt")
	}
	if e.Sandbox != "" && !e.Sandbox.Known() {
		return fmt.Errorf("codex: unknown sandbox %q; valid: read-only, workspace-write, danger-full-access", e.Sandbox)
	}
	if e.ReasoningEffort != "" && !e.ReasoningEffort.Known() {
		return fmt.Errorf("codex: unknown reasoning effort %q; valid: minimal, low, medium, high, xhigh", e.ReasoningEffort)
	}
	if e.ApprovalPolicy != "" && !e.ApprovalPolicy.Known() {
		return fmt.Errorf("codex: unknown approval policy %q; valid: never, on-request, on-failure, untrusted", e.ApprovalPolicy)
	}
	if e.Sandbox != "" && e.FullAuto {
		return errors.New("codex: sandbox and full-auto are mutually exclusive")
	}
	if e.Resume != "" {
		switch {
		case e.Sandbox != "":
			return errors.New("codex: sandbox cannot be changed on resume")
		case e.Profile != "":
			return errors.New("codex: profile cannot be changed on resume")
		case e.OutputSchema != "":
			return errors.New("codex: output schema cannot be set on resume")
		}
	}
	for _, v := range []string{e.Model, e.Profile, e.OutputSchema, e.Resume} {
		if strings.HasPrefix(v, "-") {
			return fmt.Errorf("codex: value %q looks like a flag", v)
		}
	}
	for _, dir := range e.AddDirs {
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("codex: add-dir %q is not absolute", dir)
		}
	}
	values := []string{prompt, e.Model, e.Profile, e.OutputSchema, e.Resume}
	values = append(values, e.AddDirs...)
	for _, v := range values {
		if containsNull(v) {
			return errors.New("codex: argument contains null bytes")
		}
	}
	return checkArgs(e.Binary, e.Config)
}

func checkArgs(bin string, config map[string]string) error {
	if containsNull(bin) {
		return errors.New("codex: binary contains null bytes")
	}
	for k, v := range config {
		if k == "" || strings.ContainsAny(k, "= ") {
			return fmt.Errorf("codex: invalid config key %q", k)
		}
		if containsNull(k) || containsNull(v) {
			return errors.New("codex: config contains null bytes")
		}
	}
	return nil
}

func appendConfig(args []string, config map[string]string) []string {
	for _, k := range slices.Sorted(maps.Keys(config)) {
		args = append(args, "-c", k+"="+config[k])
	}
	return args
}

func appendFlag(args []string, flag, value string) []string {
	if value == "" {
		return args
	}
	return append(args, flag, value)
}

func binary(b string) string {
	if b == "" {
		return DefaultBinary
	}
	return b
}

func containsNull(s string) bool {
	return strings.ContainsRune(s, '\x00')
}
