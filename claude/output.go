package claude

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// OutputType tags every message the CLI writes to stdout.
type OutputType string

const (
	TypeSystem          OutputType = "system"
	TypeUser            OutputType = "user"
	TypeAssistant       OutputType = "assistant"
	TypeResult          OutputType = "result"
	TypeControlRequest  OutputType = "control_request"
	TypeControlResponse OutputType = "control_response"
	TypeError           OutputType = "error"
	TypeRateLimitEvent  OutputType = "rate_limit_event"
	TypeStreamEvent     OutputType = "stream_event"
)

// Output is one decoded stdout line. Exactly one variant pointer is set,
// matching Type. An unknown Type is a decode failure.
type Output struct {
	Type OutputType

	System          *SystemMessage
	User            *UserMessage
	Assistant       *AssistantMessage
	Result          *ResultMessage
	ControlRequest  *ControlRequest
	ControlResponse *ControlResponse
	Error           *APIError
	RateLimit       *RateLimitEvent
	StreamEvent     *StreamEvent
}

func (o *Output) UnmarshalJSON(data []byte) error {
	var head struct {
		Type OutputType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	out := Output{Type: head.Type}
	var target any
	switch head.Type {
	case TypeSystem:
		out.System = &SystemMessage{}
		target = out.System
	case TypeUser:
		out.User = &UserMessage{}
		target = out.User
	case TypeAssistant:
		out.Assistant = &AssistantMessage{}
		target = out.Assistant
	case TypeResult:
		out.Result = &ResultMessage{}
		target = out.Result
	case TypeControlRequest:
		out.ControlRequest = &ControlRequest{}
		target = out.ControlRequest
	case TypeControlResponse:
		out.ControlResponse = &ControlResponse{}
		target = out.ControlResponse
	case TypeError:
		out.Error = &APIError{}
		target = out.Error
	case TypeRateLimitEvent:
		out.RateLimit = &RateLimitEvent{}
		target = out.RateLimit
	case TypeStreamEvent:
		out.StreamEvent = &StreamEvent{}
		target = out.StreamEvent
	case "":
		return fmt.Errorf("claude: missing type field")
	default:
		return fmt.Errorf("claude: unknown message type %q", head.Type)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("claude: decode %s: %w", head.Type, err)
	}
	*o = out
	return nil
}

func (o Output) MarshalJSON() ([]byte, error) {
	var v any
	switch o.Type {
	case TypeSystem:
		v = o.System
	case TypeUser:
		v = o.User
	case TypeAssistant:
		v = o.Assistant
	case TypeResult:
		v = o.Result
	case TypeControlRequest:
		v = o.ControlRequest
	case TypeControlResponse:
		v = o.ControlResponse
	case TypeError:
		v = o.Error
	case TypeRateLimitEvent:
		v = o.RateLimit
	case TypeStreamEvent:
		v = o.StreamEvent
	default:
		return nil, fmt.Errorf("claude: cannot encode message type %q", o.Type)
	}
	return withType(string(o.Type), v)
}

// withType encodes v and prepends a "type" member.
func withType(tag string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("claude: %s payload must encode as an object", tag)
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	tagJSON, _ := json.Marshal(tag)
	buf.Write(tagJSON)
	if rest := bytes.TrimSpace(body[1:]); len(rest) > 1 {
		buf.WriteByte(',')
	}
	buf.Write(body[1:])
	return buf.Bytes(), nil
}

// SessionID returns the session identifier carried by the message, or "".
func (o Output) SessionID() string {
	switch {
	case o.System != nil:
		return o.System.SessionID
	case o.User != nil:
		return o.User.SessionID
	case o.Assistant != nil:
		return o.Assistant.SessionID
	case o.Result != nil:
		return o.Result.SessionID
	case o.RateLimit != nil:
		return o.RateLimit.SessionID
	case o.StreamEvent != nil:
		return o.StreamEvent.SessionID
	}
	return ""
}

// IsTerminal reports whether the message ends a turn.
func (o Output) IsTerminal() bool { return o.Type == TypeResult }

// Text concatenates the text blocks of an assistant message, or returns
// the result text of a result message.
func (o Output) Text() string {
	switch {
	case o.Assistant != nil:
		var b strings.Builder
		for _, c := range o.Assistant.Message.Content {
			if c.Type == ContentText {
				b.WriteString(c.Text)
			}
		}
		return b.String()
	case o.Result != nil:
		return o.Result.Result
	}
	return ""
}

// ToolUses returns the tool_use blocks of an assistant message.
func (o Output) ToolUses() []ContentBlock {
	if o.Assistant == nil {
		return nil
	}
	var uses []ContentBlock
	for _, c := range o.Assistant.Message.Content {
		if c.Type == ContentToolUse {
			uses = append(uses, c)
		}
	}
	return uses
}

// SystemMessage is a system event. Fields beyond subtype and session id
// vary by subtype and are kept in Extra; use Decode for a typed view.
type SystemMessage struct {
	Subtype   SystemSubtype
	SessionID string
	Extra     map[string]json.RawMessage
}

func (s *SystemMessage) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var out SystemMessage
	if raw, ok := fields["subtype"]; ok {
		if err := json.Unmarshal(raw, &out.Subtype); err != nil {
			return fmt.Errorf("subtype: %w", err)
		}
	}
	if raw, ok := fields["session_id"]; ok {
		if err := json.Unmarshal(raw, &out.SessionID); err != nil {
			return fmt.Errorf("session_id: %w", err)
		}
	}
	delete(fields, "type")
	delete(fields, "subtype")
	delete(fields, "session_id")
	if len(fields) > 0 {
		out.Extra = fields
	}
	*s = out
	return nil
}

func (s SystemMessage) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(s.Extra)+2)
	for k, v := range s.Extra {
		fields[k] = v
	}
	fields["subtype"] = s.Subtype
	if s.SessionID != "" {
		fields["session_id"] = s.SessionID
	}
	return json.Marshal(fields)
}

// Decode unmarshals the full message into v, for example *InitInfo when
// Subtype is SystemInit.
func (s SystemMessage) Decode(v any) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// InitInfo is the payload of an init system message.
type InitInfo struct {
	SessionID         string            `json:"session_id"`
	CWD               string            `json:"cwd,omitempty"`
	Model             string            `json:"model,omitempty"`
	Tools             []string          `json:"tools,omitempty"`
	MCPServers        []json.RawMessage `json:"mcp_servers,omitempty"`
	SlashCommands     []string          `json:"slash_commands,omitempty"`
	Agents            []string          `json:"agents,omitempty"`
	ClaudeCodeVersion string            `json:"claude_code_version,omitempty"`
	APIKeySource      string            `json:"apiKeySource,omitempty"`
	OutputStyle       string            `json:"output_style,omitempty"`
	PermissionMode    PermissionMode    `json:"permissionMode,omitempty"`
}

// CompactBoundaryInfo is the payload of a compact_boundary system message.
type CompactBoundaryInfo struct {
	SessionID       string `json:"session_id"`
	CompactMetadata struct {
		PreTokens uint64 `json:"pre_tokens"`
		Trigger   string `json:"trigger"`
	} `json:"compact_metadata"`
	UUID string `json:"uuid,omitempty"`
}

// TaskUsage summarizes work done by a background task.
type TaskUsage struct {
	DurationMS  uint64 `json:"duration_ms"`
	ToolUses    uint64 `json:"tool_uses"`
	TotalTokens uint64 `json:"total_tokens"`
}

// TaskInfo is the payload of task_started, task_progress, and
// task_notification system messages. Fields are a union of the three.
type TaskInfo struct {
	SessionID    string     `json:"session_id"`
	TaskID       string     `json:"task_id"`
	TaskType     string     `json:"task_type,omitempty"`
	ToolUseID    string     `json:"tool_use_id,omitempty"`
	Description  string     `json:"description,omitempty"`
	LastToolName string     `json:"last_tool_name,omitempty"`
	Status       string     `json:"status,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	OutputFile   string     `json:"output_file,omitempty"`
	Usage        *TaskUsage `json:"usage,omitempty"`
	UUID         string     `json:"uuid,omitempty"`
}

// MessageContent is the role and content of a user or assistant message.
type MessageContent struct {
	ID           string        `json:"id,omitempty"`
	Role         Role          `json:"role"`
	Model        string        `json:"model,omitempty"`
	Content      Content       `json:"content"`
	StopReason   StopReason    `json:"stop_reason,omitempty"`
	StopSequence string        `json:"stop_sequence,omitempty"`
	Usage        *MessageUsage `json:"usage,omitempty"`
}

// MessageUsage is per-message token accounting.
type MessageUsage struct {
	InputTokens              uint32 `json:"input_tokens"`
	OutputTokens             uint32 `json:"output_tokens"`
	CacheCreationInputTokens uint32 `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     uint32 `json:"cache_read_input_tokens,omitempty"`
	ServiceTier              string `json:"service_tier,omitempty"`
}

// UserMessage echoes user input or carries tool results.
type UserMessage struct {
	Message         MessageContent `json:"message"`
	SessionID       string         `json:"session_id,omitempty"`
	UUID            string         `json:"uuid,omitempty"`
	ParentToolUseID string         `json:"parent_tool_use_id,omitempty"`
}

// AssistantMessage is model output.
type AssistantMessage struct {
	Message         MessageContent `json:"message"`
	SessionID       string         `json:"session_id"`
	UUID            string         `json:"uuid,omitempty"`
	ParentToolUseID string         `json:"parent_tool_use_id,omitempty"`
}

// ResultMessage ends a turn.
type ResultMessage struct {
	Subtype           ResultSubtype      `json:"subtype"`
	IsError           bool               `json:"is_error"`
	DurationMS        uint64             `json:"duration_ms"`
	DurationAPIMS     uint64             `json:"duration_api_ms"`
	NumTurns          int                `json:"num_turns"`
	Result            string             `json:"result,omitempty"`
	SessionID         string             `json:"session_id"`
	TotalCostUSD      float64            `json:"total_cost_usd"`
	Usage             *Usage             `json:"usage,omitempty"`
	PermissionDenials []PermissionDenial `json:"permission_denials,omitempty"`
	Errors            []string           `json:"errors,omitempty"`
	UUID              string             `json:"uuid,omitempty"`
}

// Usage is the cumulative token accounting of a turn.
type Usage struct {
	InputTokens              uint32 `json:"input_tokens"`
	CacheCreationInputTokens uint32 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     uint32 `json:"cache_read_input_tokens"`
	OutputTokens             uint32 `json:"output_tokens"`
	ServerToolUse            struct {
		WebSearchRequests uint32 `json:"web_search_requests"`
	} `json:"server_tool_use"`
	ServiceTier string `json:"service_tier,omitempty"`
}

// PermissionDenial records a tool call the permission layer refused.
type PermissionDenial struct {
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
	ToolUseID string          `json:"tool_use_id"`
}

// APIError is an upstream API failure surfaced on the stream.
type APIError struct {
	Error struct {
		Type    APIErrorType `json:"type"`
		Message string       `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// RateLimitEvent is a periodic rate-limit advisory.
type RateLimitEvent struct {
	Info      RateLimitInfo `json:"rate_limit_info"`
	SessionID string        `json:"session_id"`
	UUID      string        `json:"uuid,omitempty"`
}

// RateLimitInfo describes the current rate-limit window.
type RateLimitInfo struct {
	Status                RateLimitStatus `json:"status"`
	ResetsAt              uint64          `json:"resetsAt,omitempty"`
	Window                RateLimitWindow `json:"rateLimitType,omitempty"`
	Utilization           *float64        `json:"utilization,omitempty"`
	OverageStatus         string          `json:"overageStatus,omitempty"`
	OverageDisabledReason string          `json:"overageDisabledReason,omitempty"`
	IsUsingOverage        bool            `json:"isUsingOverage"`
}

// StreamEvent wraps one raw API streaming event. The CLI emits these only
// with --include-partial-messages.
type StreamEvent struct {
	Event           StreamEventBody `json:"event"`
	SessionID       string          `json:"session_id,omitempty"`
	UUID            string          `json:"uuid,omitempty"`
	ParentToolUseID string          `json:"parent_tool_use_id,omitempty"`
}

// StreamEventBody is the inner API event. Only the fields needed to follow
// content deltas are decoded.
type StreamEventBody struct {
	Type  string      `json:"type"`
	Index int         `json:"index,omitempty"`
	Delta *EventDelta `json:"delta,omitempty"`
}

// EventDelta is the delta of a content_block_delta or message_delta event.
type EventDelta struct {
	Type        string     `json:"type,omitempty"`
	Text        string     `json:"text,omitempty"`
	Thinking    string     `json:"thinking,omitempty"`
	PartialJSON string     `json:"partial_json,omitempty"`
	StopReason  StopReason `json:"stop_reason,omitempty"`
}

// TextDelta returns the text of a text_delta event.
func (e *StreamEvent) TextDelta() (string, bool) {
	if e.Event.Type != "content_block_delta" || e.Event.Delta == nil || e.Event.Delta.Type != "text_delta" {
		return "", false
	}
	return e.Event.Delta.Text, true
}
