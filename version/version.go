// Package version compares an agent CLI's reported version against the
// newest version this module was tested with.
//
// A newer binary is not an error; message shapes usually stay compatible.
// [Check] logs a warning the first time it sees a newer binary and never
// fails the caller.
package version

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
)

// Versions the dialects were last verified against.
const (
	TestedClaude = "2.1.47"
	TestedCodex  = "0.104.0"
)

var checked sync.Map // binary -> *sync.Once

// Check runs "<binary> --version" once per binary per process and logs a
// warning when the reported version is newer than tested. Failures to run
// or parse are logged at debug level.
func Check(ctx context.Context, binary, tested string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	once, _ := checked.LoadOrStore(binary, new(sync.Once))
	once.(*sync.Once).Do(func() {
		v, err := Probe(ctx, binary)
		if err != nil {
			logger.Debug("version check failed", "binary", binary, "error", err)
			return
		}
		if Newer(v, tested) {
			logger.Warn("binary is newer than tested version",
				"binary", binary, "version", v, "tested", tested)
			return
		}
		logger.Debug("binary version compatible", "binary", binary, "version", v, "tested", tested)
	})
}

// Probe runs "<binary> --version" and returns the parsed version.
func Probe(ctx context.Context, binary string) (string, error) {
	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("version: run %s --version: %w", binary, err)
	}
	line, _, _ := bytes.Cut(out, []byte("\n"))
	v, ok := Parse(string(line))
	if !ok {
		return "", fmt.Errorf("version: cannot parse %q", strings.TrimSpace(string(line)))
	}
	return v, nil
}

// Parse extracts the first semantic version from a --version line such as
// "2.1.47 (Claude Code)" or "codex-cli 0.104.0". The result has no "v"
// prefix.
func Parse(line string) (string, bool) {
	for _, field := range strings.Fields(line) {
		v := strings.TrimPrefix(field, "v")
		if semver.IsValid("v" + v) {
			return v, true
		}
	}
	return "", false
}

// Newer reports whether version is strictly newer than tested. Invalid
// versions are never newer.
func Newer(version, tested string) bool {
	v, t := "v"+strings.TrimPrefix(version, "v"), "v"+strings.TrimPrefix(tested, "v")
	if !semver.IsValid(v) || !semver.IsValid(t) {
		return false
	}
	return semver.Compare(v, t) > 0
}
