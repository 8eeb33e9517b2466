package codex

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType tags a ThreadEvent from "codex exec --json".
type EventType string

const (
	EventThreadStarted EventType = "thread.started"
	EventTurnStarted   EventType = "turn.started"
	EventTurnCompleted EventType = "turn.completed"
	EventTurnFailed    EventType = "turn.failed"
	EventItemStarted   EventType = "item.started"
	EventItemUpdated   EventType = "item.updated"
	EventItemCompleted EventType = "item.completed"
	EventError         EventType = "error"
)

// Usage is the token count reported at the end of an exec turn.
type Usage struct {
	InputTokens       int64 `json:"input_tokens"`
	CachedInputTokens int64 `json:"cached_input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
}

type ThreadError struct {
	Message string `json:"message"`
}

// ThreadEvent is one line of exec output. Which fields are set depends on
// Type:
//
//	thread.started    ThreadID
//	turn.completed    Usage
//	turn.failed       Error
//	item.*            Item
//	error             Message
type ThreadEvent struct {
	Type     EventType    `json:"type"`
	ThreadID string       `json:"thread_id,omitempty"`
	Usage    *Usage       `json:"usage,omitempty"`
	Error    *ThreadError `json:"error,omitempty"`
	Item     *ThreadItem  `json:"item,omitempty"`
	Message  string       `json:"message,omitempty"`
}

type threadEvent ThreadEvent

// UnmarshalJSON rejects unknown event types and events missing the field
// their type requires.
func (e *ThreadEvent) UnmarshalJSON(data []byte) error {
	var w threadEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if err := ThreadEvent(w).validate(); err != nil {
		return err
	}
	*e = ThreadEvent(w)
	return nil
}

func (e ThreadEvent) MarshalJSON() ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(threadEvent(e))
}

func (e ThreadEvent) validate() error {
	missing := func(field string) error {
		return fmt.Errorf("codex: %s event without %s", e.Type, field)
	}
	switch e.Type {
	case "":
		return errors.New("codex: event has no type")
	case EventThreadStarted:
		if e.ThreadID == "" {
			return missing("thread_id")
		}
	case EventTurnStarted:
	case EventTurnCompleted:
		if e.Usage == nil {
			return missing("usage")
		}
	case EventTurnFailed:
		if e.Error == nil {
			return missing("error")
		}
	case EventItemStarted, EventItemUpdated, EventItemCompleted:
		if e.Item == nil {
			return missing("item")
		}
	case EventError:
		if e.Message == "" {
			return missing("message")
		}
	default:
		return fmt.Errorf("codex: unknown event type %q", e.Type)
	}
	return nil
}

// IsTerminal reports whether e ends an exec turn.
func (e ThreadEvent) IsTerminal() bool {
	return e.Type == EventTurnCompleted || e.Type == EventTurnFailed
}

// SessionID returns the thread id of a thread.started event.
func (e ThreadEvent) SessionID() string {
	if e.Type == EventThreadStarted {
		return e.ThreadID
	}
	return ""
}
