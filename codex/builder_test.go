package codex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmora/agentwire/internal/clitest"
	"github.com/dmora/agentwire/proc"
)

func TestAppServer_Args(t *testing.T) {
	args, err := AppServer{}.Args()
	require.NoError(t, err)
	assert.Equal(t, []string{"app-server", "--listen", "stdio://"}, args)

	args, err = AppServer{Config: map[string]string{"model": "o4-mini", "approval_policy": "never"}}.Args()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"app-server",
		"-c", "approval_policy=never",
		"-c", "model=o4-mini",
		"--listen", "stdio://",
	}, args)
}

func TestAppServer_Command(t *testing.T) {
	cmd, err := AppServer{Dir: "/work", Env: map[string]string{"A": "1"}}.Command()
	require.NoError(t, err)
	assert.Equal(t, DefaultBinary, cmd.Path)
	assert.Equal(t, "/work", cmd.Dir)
	assert.Equal(t, map[string]string{"A": "1"}, cmd.Env)

	cmd, err = AppServer{Binary: "/opt/codex"}.Command()
	require.NoError(t, err)
	assert.Equal(t, "/opt/codex", cmd.Path)

	_, err = AppServer{Config: map[string]string{"a=b": "c"}}.Command()
	assert.Error(t, err)
}

func TestExecCommand_Fresh(t *testing.T) {
	e := ExecCommand{
		Model:            "gpt-5-codex",
		ReasoningEffort:  EffortHigh,
		ApprovalPolicy:   ApprovalNever,
		Sandbox:          SandboxWorkspaceWrite,
		SkipGitRepoCheck: true,
		Ephemeral:        true,
		Profile:          "ci",
		OutputSchema:     "/tmp/schema.json",
		AddDirs:          []string{"/data"},
		Config:           map[string]string{"hide_agent_reasoning": "true"},
	}
	args, err := e.Args("-n fix the tests")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"exec", "--json",
		"-p", "ci",
		"--output-schema", "/tmp/schema.json",
		"-m", "gpt-5-codex",
		"--ephemeral",
		"--skip-git-repo-check",
		"-c", "hide_agent_reasoning=true",
		"-c", "model_reasoning_effort=high",
		"-c", "approval_policy=never",
		"--add-dir", "/data",
		"--sandbox", "workspace-write",
		"--", "-n fix the tests",
	}, args)
}

func TestExecCommand_Resume(t *testing.T) {
	args, err := ExecCommand{Resume: "th-1", FullAuto: true, Model: "o3"}.Args("continue")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"exec", "resume", "--json", "-m", "o3", "--full-auto", "--", "th-1", "continue",
	}, args)

	args, err = ExecCommand{Resume: "th-1"}.Args("")
	require.NoError(t, err)
	assert.Equal(t, []string{"exec", "resume", "--json", "--", "th-1"}, args)
}

func TestExecCommand_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		e      ExecCommand
		prompt string
	}{
		{"empty prompt", ExecCommand{}, ""},
		{"unknown sandbox", ExecCommand{Sandbox: "yolo"}, "p"},
		{"unknown effort", ExecCommand{ReasoningEffort: "max"}, "p"},
		{"unknown approval", ExecCommand{ApprovalPolicy: "always"}, "p"},
		{"sandbox and full-auto", ExecCommand{Sandbox: SandboxReadOnly, FullAuto: true}, "p"},
		{"sandbox on resume", ExecCommand{Resume: "th", Sandbox: SandboxReadOnly}, "p"},
		{"profile on resume", ExecCommand{Resume: "th", Profile: "ci"}, "p"},
		{"schema on resume", ExecCommand{Resume: "th", OutputSchema: "/s.json"}, "p"},
		{"flag-like model", ExecCommand{Model: "--help"}, "p"},
		{"relative add-dir", ExecCommand{AddDirs: []string{"data"}}, "p"},
		{"null in prompt", ExecCommand{}, "a\x00b"},
		{"null in config", ExecCommand{Config: map[string]string{"k": "v\x00"}}, "p"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.e.Command(tt.prompt)
			assert.Error(t, err)
		})
	}
}

func TestAppServer_Compliance(t *testing.T) {
	clitest.RunBuilderTests(t, clitest.Builder{
		Build: func(model, _ string) (proc.Command, error) {
			var config map[string]string
			if model != "" {
				config = map[string]string{"model": model}
			}
			return AppServer{Config: config}.Command()
		},
		ModelInConfig: true,
	})
}

func TestExecCommand_Compliance(t *testing.T) {
	clitest.RunBuilderTests(t, clitest.Builder{
		Build: func(model, prompt string) (proc.Command, error) {
			return ExecCommand{Model: model}.Command(prompt)
		},
		TakesPrompt: true,
	})
}
