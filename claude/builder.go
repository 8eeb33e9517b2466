package claude

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dmora/agentwire/proc"
)

// DefaultBinary is the executable looked up on PATH when Builder.Binary
// is empty.
const DefaultBinary = "claude"

// Builder describes how to launch the CLI in bidirectional stream-json
// mode. The zero value is usable.
type Builder struct {
	// Binary is the executable name or path. Default "claude".
	Binary string
	Dir    string
	Env    map[string]string

	Model         string
	FallbackModel string

	// Resume continues an existing conversation by id.
	Resume string
	// SessionID pins the id of a new conversation. Must be a UUID.
	SessionID string
	Continue  bool

	PermissionMode             PermissionMode
	PermissionPromptTool       string
	DangerouslySkipPermissions bool
	AllowedTools               []string
	DisallowedTools            []string

	SystemPrompt       string
	AppendSystemPrompt string
	MaxTurns           int

	AddDirs         []string
	MCPConfig       []string
	StrictMCPConfig bool
	Settings        string

	IncludePartialMessages bool

	// Debug enables --debug. "*" enables it without a filter.
	Debug string
}

// baseArgs are always present: --print with stream-json output requires
// --verbose.
func baseArgs() []string {
	return []string{
		"--print",
		"--verbose",
		"--output-format", "stream-json",
		"--input-format", "stream-json",
	}
}

// Args returns the command line arguments, excluding the binary.
func (b Builder) Args() ([]string, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	args := baseArgs()
	switch {
	case b.Debug == "*":
		args = append(args, "--debug")
	case b.Debug != "":
		args = append(args, "--debug", b.Debug)
	}
	if b.DangerouslySkipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}
	if len(b.AllowedTools) > 0 {
		args = append(args, "--allowed-tools")
		args = append(args, b.AllowedTools...)
	}
	if len(b.DisallowedTools) > 0 {
		args = append(args, "--disallowed-tools")
		args = append(args, b.DisallowedTools...)
	}
	if len(b.MCPConfig) > 0 {
		args = append(args, "--mcp-config")
		args = append(args, b.MCPConfig...)
	}
	if b.StrictMCPConfig {
		args = append(args, "--strict-mcp-config")
	}
	args = appendFlag(args, "--system-prompt", b.SystemPrompt)
	args = appendFlag(args, "--append-system-prompt", b.AppendSystemPrompt)
	if b.PermissionMode != "" && b.PermissionMode != PermissionDefault {
		args = append(args, "--permission-mode", string(b.PermissionMode))
	}
	args = appendFlag(args, "--permission-prompt-tool", b.PermissionPromptTool)
	if b.Continue {
		args = append(args, "--continue")
	}
	args = appendFlag(args, "--resume", b.Resume)
	args = appendFlag(args, "--model", b.Model)
	args = appendFlag(args, "--fallback-model", b.FallbackModel)
	args = appendFlag(args, "--settings", b.Settings)
	if b.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(b.MaxTurns))
	}
	if len(b.AddDirs) > 0 {
		args = append(args, "--add-dir")
		args = append(args, b.AddDirs...)
	}
	if b.IncludePartialMessages {
		args = append(args, "--include-partial-messages")
	}
	args = appendFlag(args, "--session-id", b.SessionID)
	return args, nil
}

// Command resolves the builder into a process description.
func (b Builder) Command() (proc.Command, error) {
	args, err := b.Args()
	if err != nil {
		return proc.Command{}, err
	}
	bin := b.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	return proc.Command{Path: bin, Args: args, Dir: b.Dir, Env: b.Env}, nil
}

func (b Builder) validate() error {
	if b.Resume != "" && b.Continue {
		return errors.New("claude: resume and continue are mutually exclusive")
	}
	if b.MaxTurns < 0 {
		return fmt.Errorf("claude: max turns must be positive, got %d", b.MaxTurns)
	}
	if b.PermissionMode != "" && !b.PermissionMode.Known() {
		return fmt.Errorf("claude: unknown permission mode %q; valid: default, acceptEdits, bypassPermissions, plan", b.PermissionMode)
	}
	if b.SessionID != "" {
		if _, err := uuid.Parse(b.SessionID); err != nil {
			return fmt.Errorf("claude: session id %q: %w", b.SessionID, err)
		}
	}
	for _, v := range []string{b.Model, b.FallbackModel, b.Resume, b.PermissionPromptTool, b.Settings} {
		if strings.HasPrefix(v, "-") {
			return fmt.Errorf("claude: value %q looks like a flag", v)
		}
	}
	values := []string{
		b.Binary, b.Model, b.FallbackModel, b.Resume, b.SessionID,
		b.PermissionPromptTool, b.SystemPrompt, b.AppendSystemPrompt,
		b.Settings, b.Debug,
	}
	values = append(values, b.AllowedTools...)
	values = append(values, b.DisallowedTools...)
	values = append(values, b.AddDirs...)
	values = append(values, b.MCPConfig...)
	for _, v := range values {
		if containsNull(v) {
			return errors.New("claude: argument contains null bytes")
		}
	}
	return nil
}

func appendFlag(args []string, flag, value string) []string {
	if value == "" {
		return args
	}
	return append(args, flag, value)
}

func containsNull(s string) bool {
	return strings.ContainsRune(s, '\x00')
}
