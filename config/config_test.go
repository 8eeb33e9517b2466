package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmora/agentwire"
	"github.com/dmora/agentwire/claude"
	"github.com/dmora/agentwire/codex"
)

func TestLoad_TOML(t *testing.T) {
	t.Setenv("AGENTWIRE_TEST_WORKDIR", "/work")

	cfg, err := Load("testdata/agentwire.toml")
	require.NoError(t, err)

	b := cfg.ClaudeBuilder()
	assert.Equal(t, "/opt/claude/bin/claude", b.Binary)
	assert.Equal(t, "/work", b.Dir)
	assert.Equal(t, claude.PermissionAcceptEdits, b.PermissionMode)
	assert.Equal(t, []string{"Read", "Grep"}, b.AllowedTools)
	assert.Equal(t, 8, b.MaxTurns)
	assert.Equal(t, map[string]string{"CLAUDE_CODE_USE_BEDROCK": "0"}, b.Env)

	a := cfg.AppServer()
	assert.Equal(t, codex.DefaultBinary, a.Binary)
	assert.Equal(t, "/work", a.Dir)
	args, err := a.Args()
	require.NoError(t, err)
	assert.Equal(t, []string{"app-server", "-c", "model=o4-mini", "--listen", "stdio://"}, args)

	e := cfg.ExecCommand()
	assert.Equal(t, codex.EffortHigh, e.ReasoningEffort)
	assert.Equal(t, codex.SandboxWorkspaceWrite, e.Sandbox)
	assert.True(t, e.SkipGitRepoCheck)
	assert.Equal(t, []string{"/data"}, e.AddDirs)
	assert.Equal(t, "/work", e.Dir)

	o := agentwire.ResolveOptions(cfg.Options(&bytes.Buffer{})...)
	assert.Equal(t, 4<<20, o.BufferSize)
	assert.True(t, o.DrainStderr)
	assert.False(t, o.StrictCorrelation)
	assert.True(t, o.Logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("AGENTWIRE_TEST_WORKDIR", "/home/ci")

	cfg, err := Load("testdata/agentwire.yaml")
	require.NoError(t, err)

	b := cfg.ClaudeBuilder()
	assert.Equal(t, claude.DefaultBinary, b.Binary)
	assert.Equal(t, "opus", b.Model)
	assert.Equal(t, "Reply tersely.", b.AppendSystemPrompt)
	assert.True(t, b.IncludePartialMessages)

	e := cfg.ExecCommand()
	assert.Equal(t, "/usr/local/bin/codex", e.Binary)
	assert.Equal(t, map[string]string{"CODEX_HOME": "/home/ci/.codex"}, e.Env)
	assert.Equal(t, codex.ApprovalNever, e.ApprovalPolicy)
	assert.True(t, e.FullAuto)
	assert.True(t, e.Ephemeral)

	o := agentwire.ResolveOptions(cfg.Options(&bytes.Buffer{})...)
	assert.Equal(t, agentwire.DefaultBufferSize, o.BufferSize)
	assert.True(t, o.StrictCorrelation)
	assert.True(t, o.SkipVersionCheck)
	assert.False(t, o.DrainStderr)
	assert.False(t, o.Logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, o.Logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestOptions_LoggerWritesToWriter(t *testing.T) {
	cfg, err := Parse([]byte("[client]\nlog_level = \"info\"\n"), FormatTOML)
	require.NoError(t, err)

	var buf bytes.Buffer
	o := agentwire.ResolveOptions(cfg.Options(&buf)...)
	o.Logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "conn=")
}

func TestParse_Empty(t *testing.T) {
	for _, f := range []Format{FormatTOML, FormatYAML} {
		cfg, err := Parse(nil, f)
		require.NoError(t, err, f)
		assert.Equal(t, claude.DefaultBinary, cfg.Claude.Binary)
		assert.Equal(t, codex.DefaultBinary, cfg.Codex.Binary)
		assert.Len(t, cfg.Options(nil), 1)
	}
}

func TestParse_ExpandsBracedReferencesOnly(t *testing.T) {
	t.Setenv("AGENTWIRE_TEST_MODEL", "opus")
	t.Setenv("HOME", "/home/u")

	cfg, err := Parse([]byte(`
[claude]
model = "${AGENTWIRE_TEST_MODEL}"
system_prompt = "Budget is $5, see $HOME and ${AGENTWIRE_TEST_UNSET}."
`), FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, "opus", cfg.Claude.Model)
	assert.Equal(t, "Budget is $5, see $HOME and .", cfg.Claude.SystemPrompt)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		f    Format
		data string
	}{
		{"toml syntax", FormatTOML, "[client\n"},
		{"toml unknown key", FormatTOML, "[claude]\nmodle = \"x\"\n"},
		{"yaml unknown key", FormatYAML, "codex:\n  sandbox: read-only\n"},
		{"yaml type", FormatYAML, "claude:\n  max_turns: many\n"},
		{"log level", FormatTOML, "[client]\nlog_level = \"loud\"\n"},
		{"negative buffer", FormatYAML, "client:\n  buffer_size: -1\n"},
		{"permission mode", FormatTOML, "[claude]\npermission_mode = \"yolo\"\n"},
		{"max turns", FormatYAML, "claude:\n  max_turns: -2\n"},
		{"codex config key", FormatTOML, "[codex.config]\n\"a=b\" = \"c\"\n"},
		{"sandbox", FormatYAML, "codex:\n  exec:\n    sandbox: everything\n"},
		{"sandbox with full auto", FormatTOML, "[codex.exec]\nsandbox = \"read-only\"\nfull_auto = true\n"},
		{"format", Format("json"), "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.f)
			assert.Error(t, err)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("testdata/agentwire.json")
	assert.ErrorContains(t, err, "unsupported file extension")

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.toml":      FormatTOML,
		"a.yaml":      FormatYAML,
		"dir/a.YML":   FormatYAML,
		"/etc/x.Toml": FormatTOML,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
}
