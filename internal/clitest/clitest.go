// Package clitest holds compliance suites shared by the dialect packages:
// one for command builders and one for line decoders.
package clitest

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/dmora/agentwire"
	"github.com/dmora/agentwire/proc"
)

// Builder describes a command builder under test.
type Builder struct {
	// Build returns the command for model and prompt.
	Build func(model, prompt string) (proc.Command, error)

	// TakesPrompt is false for builders whose input goes over stdin.
	// Their Build ignores prompt.
	TakesPrompt bool

	// ModelInConfig is true when the model travels inside a "-c key=value"
	// pair. The value is never read as a flag there.
	ModelInConfig bool
}

// RunBuilderTests checks the structural and safety contract every
// builder keeps.
func RunBuilderTests(t *testing.T, b Builder) {
	t.Helper()

	t.Run("ZeroConfig", func(t *testing.T) {
		cmd, err := b.Build("", "hello")
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if cmd.Path == "" {
			t.Error("binary must be non-empty")
		}
		if cmd.Args == nil {
			t.Error("args must be non-nil")
		}
	})

	t.Run("NoNullBytesInArgs", func(t *testing.T) {
		cmd, err := b.Build("test-model", "hello")
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		for i, a := range append([]string{cmd.Path}, cmd.Args...) {
			if strings.Contains(a, "\x00") {
				t.Errorf("args[%d] contains null bytes", i)
			}
		}
		if !slices.ContainsFunc(cmd.Args, func(a string) bool { return strings.Contains(a, "test-model") }) {
			t.Error("model missing from args")
		}
	})

	t.Run("NullByteModelRejected", func(t *testing.T) {
		if _, err := b.Build("gpt\x00evil", "hello"); err == nil {
			t.Error("null-byte model must be rejected")
		}
	})

	if !b.ModelInConfig {
		t.Run("LeadingDashModelRejected", func(t *testing.T) {
			if _, err := b.Build("-evil", "hello"); err == nil {
				t.Error("leading-dash model must be rejected")
			}
		})
	}

	if !b.TakesPrompt {
		return
	}

	t.Run("NullBytePromptRejected", func(t *testing.T) {
		if _, err := b.Build("", "hello\x00world"); err == nil {
			t.Error("null-byte prompt must be rejected")
		}
	})

	t.Run("LeadingDashPromptAfterSeparator", func(t *testing.T) {
		cmd, err := b.Build("", "-rf everything")
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		sep := slices.Index(cmd.Args, "--")
		at := slices.Index(cmd.Args, "-rf everything")
		if sep < 0 || at < sep {
			t.Errorf("prompt must follow --, got %q", cmd.Args)
		}
	})
}

// garbageCorpus is a fixed set of adversarial inputs used by robustness tests.
var garbageCorpus = []string{
	"\x00",
	strings.Repeat("x", 65536),
	"{{{",
	"\xff\xfe",
	`{"":null}`,
	"null",
	"[]",
	`{"type":99}`,
	`{"type":true}`,
	`{"type":[]}`,
	`{"type":"unknown"}`,
}

// RunDecoderTests checks that decode rejects malformed lines with a
// DecodeError carrying the raw line, and never panics. valid is a line
// decode must accept.
func RunDecoderTests[T any](t *testing.T, decode func([]byte) (T, error), valid string) {
	t.Helper()

	t.Run("ValidLine", func(t *testing.T) {
		if _, err := decode([]byte(valid)); err != nil {
			t.Fatalf("decode(%q): %v", valid, err)
		}
	})

	t.Run("InvalidJSONIsDecodeError", func(t *testing.T) {
		_, err := decode([]byte("not json"))
		var derr *agentwire.DecodeError
		if !errors.As(err, &derr) {
			t.Fatalf("error = %v, want *DecodeError", err)
		}
		if derr.Line != "not json" {
			t.Errorf("Line = %q, want the raw input", derr.Line)
		}
	})

	t.Run("GarbageNoPanic", func(t *testing.T) {
		for _, input := range garbageCorpus {
			_, _ = decode([]byte(input))
		}
	})
}
