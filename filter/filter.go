// Package filter provides composable iterator middleware for agentwire
// streams. Consumers wrap Stream.All or Client.Messages with these
// functions to select the message granularity they need.
//
// Errors always pass through so a filtered range still sees failures.
package filter

import (
	"iter"
	"strings"

	"github.com/dmora/agentwire/claude"
	"github.com/dmora/agentwire/codex"
)

// Keep passes values for which accept returns true, and every error.
// Breaking out of the returned sequence stops seq.
func Keep[T any](seq iter.Seq2[T, error], accept func(T) bool) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v, err := range seq {
			if err != nil || accept(v) {
				if !yield(v, err) {
					return
				}
			}
		}
	}
}

// Types passes Claude outputs of the given types. No types drops all.
func Types(seq iter.Seq2[claude.Output, error], types ...claude.OutputType) iter.Seq2[claude.Output, error] {
	allowed := make(map[claude.OutputType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return Keep(seq, func(out claude.Output) bool {
		_, ok := allowed[out.Type]
		return ok
	})
}

// Completed drops partial-message stream events, passing only complete
// messages.
func Completed(seq iter.Seq2[claude.Output, error]) iter.Seq2[claude.Output, error] {
	return Keep(seq, func(out claude.Output) bool {
		return out.Type != claude.TypeStreamEvent
	})
}

// ResultOnly passes only the result message.
func ResultOnly(seq iter.Seq2[claude.Output, error]) iter.Seq2[claude.Output, error] {
	return Types(seq, claude.TypeResult)
}

// Methods passes app-server notifications with the given methods. Server
// requests always pass: each one needs an answer.
func Methods(seq iter.Seq2[codex.ServerMessage, error], methods ...string) iter.Seq2[codex.ServerMessage, error] {
	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[m] = struct{}{}
	}
	return Keep(seq, func(m codex.ServerMessage) bool {
		if m.IsRequest() {
			return true
		}
		_, ok := allowed[m.Method]
		return ok
	})
}

// NoDeltas drops streaming delta notifications.
func NoDeltas(seq iter.Seq2[codex.ServerMessage, error]) iter.Seq2[codex.ServerMessage, error] {
	return Keep(seq, func(m codex.ServerMessage) bool {
		return m.IsRequest() || !IsDelta(m.Method)
	})
}

// Events passes exec events of the given types.
func Events(seq iter.Seq2[codex.ThreadEvent, error], types ...codex.EventType) iter.Seq2[codex.ThreadEvent, error] {
	allowed := make(map[codex.EventType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return Keep(seq, func(ev codex.ThreadEvent) bool {
		_, ok := allowed[ev.Type]
		return ok
	})
}

// IsDelta reports whether method is a streaming delta notification.
// Convention: every delta method's last segment ends in "delta" or "Delta"
// (item/agentMessage/delta, item/commandExecution/outputDelta), so new
// delta kinds need no update here.
func IsDelta(method string) bool {
	return strings.HasSuffix(strings.ToLower(method), "delta")
}
