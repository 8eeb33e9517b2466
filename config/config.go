// Package config loads client settings from a TOML or YAML file.
//
// ${VAR} references are expanded from the environment before parsing. A
// bare $ is left alone.
// Unknown keys are rejected. The result converts into the builders and
// options the client packages take:
//
//	cfg, err := config.Load("agentwire.toml")
//	if err != nil { ... }
//	c, err := claude.Start(ctx, cfg.ClaudeBuilder(), cfg.Options(os.Stderr)...)
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dmora/agentwire"
	"github.com/dmora/agentwire/claude"
	"github.com/dmora/agentwire/codex"
)

// Format is a configuration file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("config: unsupported file extension %q", filepath.Ext(path))
}

type Config struct {
	Client ClientConfig `toml:"client" yaml:"client"`
	Claude ClaudeConfig `toml:"claude" yaml:"claude"`
	Codex  CodexConfig  `toml:"codex" yaml:"codex"`
}

// ClientConfig maps onto agentwire options.
type ClientConfig struct {
	// LogLevel is one of debug, info, warn, error. Empty keeps
	// slog.Default.
	LogLevel          string `toml:"log_level" yaml:"log_level"`
	BufferSize        int    `toml:"buffer_size" yaml:"buffer_size"`
	StrictCorrelation bool   `toml:"strict_correlation" yaml:"strict_correlation"`
	DrainStderr       bool   `toml:"drain_stderr" yaml:"drain_stderr"`
	SkipVersionCheck  bool   `toml:"skip_version_check" yaml:"skip_version_check"`
}

type ClaudeConfig struct {
	Binary string            `toml:"binary" yaml:"binary"`
	Dir    string            `toml:"dir" yaml:"dir"`
	Env    map[string]string `toml:"env" yaml:"env"`

	Model                  string   `toml:"model" yaml:"model"`
	FallbackModel          string   `toml:"fallback_model" yaml:"fallback_model"`
	PermissionMode         string   `toml:"permission_mode" yaml:"permission_mode"`
	PermissionPromptTool   string   `toml:"permission_prompt_tool" yaml:"permission_prompt_tool"`
	AllowedTools           []string `toml:"allowed_tools" yaml:"allowed_tools"`
	DisallowedTools        []string `toml:"disallowed_tools" yaml:"disallowed_tools"`
	SystemPrompt           string   `toml:"system_prompt" yaml:"system_prompt"`
	AppendSystemPrompt     string   `toml:"append_system_prompt" yaml:"append_system_prompt"`
	MaxTurns               int      `toml:"max_turns" yaml:"max_turns"`
	AddDirs                []string `toml:"add_dirs" yaml:"add_dirs"`
	MCPConfig              []string `toml:"mcp_config" yaml:"mcp_config"`
	StrictMCPConfig        bool     `toml:"strict_mcp_config" yaml:"strict_mcp_config"`
	Settings               string   `toml:"settings" yaml:"settings"`
	IncludePartialMessages bool     `toml:"include_partial_messages" yaml:"include_partial_messages"`
}

// CodexConfig covers both app-server and exec. Binary, Dir and Env are
// shared.
type CodexConfig struct {
	Binary string            `toml:"binary" yaml:"binary"`
	Dir    string            `toml:"dir" yaml:"dir"`
	Env    map[string]string `toml:"env" yaml:"env"`
	Config map[string]string `toml:"config" yaml:"config"`

	Exec ExecConfig `toml:"exec" yaml:"exec"`
}

type ExecConfig struct {
	Model            string            `toml:"model" yaml:"model"`
	ReasoningEffort  string            `toml:"reasoning_effort" yaml:"reasoning_effort"`
	ApprovalPolicy   string            `toml:"approval_policy" yaml:"approval_policy"`
	Sandbox          string            `toml:"sandbox" yaml:"sandbox"`
	FullAuto         bool              `toml:"full_auto" yaml:"full_auto"`
	SkipGitRepoCheck bool              `toml:"skip_git_repo_check" yaml:"skip_git_repo_check"`
	Ephemeral        bool              `toml:"ephemeral" yaml:"ephemeral"`
	Profile          string            `toml:"profile" yaml:"profile"`
	OutputSchema     string            `toml:"output_schema" yaml:"output_schema"`
	AddDirs          []string          `toml:"add_dirs" yaml:"add_dirs"`
	Config           map[string]string `toml:"config" yaml:"config"`
}

// Load reads, expands and validates the file at path.
func Load(path string) (*Config, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data, f)
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with its value. Unset variables become empty.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// Parse decodes data in format f. ${VAR} references are expanded first.
func Parse(data []byte, f Format) (*Config, error) {
	expanded := expandEnv(string(data))

	var cfg Config
	switch f {
	case FormatTOML:
		md, err := toml.Decode(expanded, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: unknown key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: unknown format %q", f)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Client.BufferSize == 0 {
		c.Client.BufferSize = agentwire.DefaultBufferSize
	}
	if c.Claude.Binary == "" {
		c.Claude.Binary = claude.DefaultBinary
	}
	if c.Codex.Binary == "" {
		c.Codex.Binary = codex.DefaultBinary
	}
}

// validate runs the builders' own argument checks so a bad file fails at
// load time rather than at spawn.
func (c *Config) validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	if c.Client.BufferSize < 0 {
		return fmt.Errorf("client.buffer_size must be positive, got %d", c.Client.BufferSize)
	}
	if _, err := c.ClaudeBuilder().Args(); err != nil {
		return err
	}
	if _, err := c.AppServer().Args(); err != nil {
		return err
	}
	// Any non-empty prompt passes; only the settings are under test.
	if _, err := c.ExecCommand().Args("prompt"); err != nil {
		return err
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if c.Client.LogLevel == "" {
		return l, nil
	}
	if err := l.UnmarshalText([]byte(c.Client.LogLevel)); err != nil {
		return l, fmt.Errorf("client.log_level: %w", err)
	}
	return l, nil
}

// Options converts the client section. When a log level is set, a text
// logger writing to w at that level is included.
func (c *Config) Options(w io.Writer) []agentwire.Option {
	opts := []agentwire.Option{agentwire.WithBufferSize(c.Client.BufferSize)}
	if c.Client.LogLevel != "" {
		l, _ := c.level()
		opts = append(opts, agentwire.WithLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))))
	}
	if c.Client.StrictCorrelation {
		opts = append(opts, agentwire.WithStrictCorrelation())
	}
	if c.Client.DrainStderr {
		opts = append(opts, agentwire.WithStderrDrain())
	}
	if c.Client.SkipVersionCheck {
		opts = append(opts, agentwire.WithoutVersionCheck())
	}
	return opts
}

func (c *Config) ClaudeBuilder() claude.Builder {
	cc := c.Claude
	return claude.Builder{
		Binary:                 cc.Binary,
		Dir:                    cc.Dir,
		Env:                    cc.Env,
		Model:                  cc.Model,
		FallbackModel:          cc.FallbackModel,
		PermissionMode:         claude.PermissionMode(cc.PermissionMode),
		PermissionPromptTool:   cc.PermissionPromptTool,
		AllowedTools:           cc.AllowedTools,
		DisallowedTools:        cc.DisallowedTools,
		SystemPrompt:           cc.SystemPrompt,
		AppendSystemPrompt:     cc.AppendSystemPrompt,
		MaxTurns:               cc.MaxTurns,
		AddDirs:                cc.AddDirs,
		MCPConfig:              cc.MCPConfig,
		StrictMCPConfig:        cc.StrictMCPConfig,
		Settings:               cc.Settings,
		IncludePartialMessages: cc.IncludePartialMessages,
	}
}

func (c *Config) AppServer() codex.AppServer {
	return codex.AppServer{
		Binary: c.Codex.Binary,
		Dir:    c.Codex.Dir,
		Env:    c.Codex.Env,
		Config: c.Codex.Config,
	}
}

// ExecCommand returns a fresh-run command. Set Resume on the result to
// continue a thread.
func (c *Config) ExecCommand() codex.ExecCommand {
	e := c.Codex.Exec
	return codex.ExecCommand{
		Binary:           c.Codex.Binary,
		Dir:              c.Codex.Dir,
		Env:              c.Codex.Env,
		Model:            e.Model,
		ReasoningEffort:  codex.ReasoningEffort(e.ReasoningEffort),
		ApprovalPolicy:   codex.ApprovalMode(e.ApprovalPolicy),
		Sandbox:          codex.SandboxMode(e.Sandbox),
		FullAuto:         e.FullAuto,
		SkipGitRepoCheck: e.SkipGitRepoCheck,
		Ephemeral:        e.Ephemeral,
		Profile:          e.Profile,
		OutputSchema:     e.OutputSchema,
		AddDirs:          e.AddDirs,
		Config:           e.Config,
	}
}
