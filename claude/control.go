package claude

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ControlRequest is a control_request in either direction. The CLI sends
// them to ask for tool permission, hook callbacks, or MCP relays; the
// client sends them to initialize the control protocol.
type ControlRequest struct {
	RequestID string             `json:"request_id"`
	Request   ControlRequestBody `json:"request"`
}

// ControlRequestBody is the subtype-tagged body of a control request.
// Which fields are set depends on Subtype.
type ControlRequestBody struct {
	Subtype ControlSubtype `json:"subtype"`

	// can_use_tool
	ToolName              string          `json:"tool_name,omitempty"`
	Input                 json.RawMessage `json:"input,omitempty"`
	PermissionSuggestions []Permission    `json:"permission_suggestions,omitempty"`
	BlockedPath           string          `json:"blocked_path,omitempty"`
	DecisionReason        string          `json:"decision_reason,omitempty"`
	ToolUseID             string          `json:"tool_use_id,omitempty"`

	// hook_callback
	CallbackID string `json:"callback_id,omitempty"`

	// mcp_message
	ServerName string          `json:"server_name,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`

	// initialize
	Hooks json.RawMessage `json:"hooks,omitempty"`
}

// ControlResponse is a control_response in either direction.
type ControlResponse struct {
	Response ControlResponseBody `json:"response"`
}

// ControlResponseBody answers the control request named by RequestID.
// Subtype is success (with an optional Response payload) or error.
type ControlResponseBody struct {
	Subtype   ControlSubtype  `json:"subtype"`
	RequestID string          `json:"request_id"`
	Response  json.RawMessage `json:"response,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// PermissionType is the kind of a permission grant.
type PermissionType string

const (
	PermissionAddRules PermissionType = "addRules"
	PermissionSetMode  PermissionType = "setMode"
)

// PermissionDestination is where a permission grant applies.
type PermissionDestination string

const (
	DestinationSession PermissionDestination = "session"
	DestinationProject PermissionDestination = "project"
)

// Permission is a grant the CLI suggests, or the client returns alongside
// an allow decision so the CLI remembers it.
type Permission struct {
	Type        PermissionType        `json:"type"`
	Destination PermissionDestination `json:"destination"`
	Mode        PermissionMode        `json:"mode,omitempty"`
	Behavior    Behavior              `json:"behavior,omitempty"`
	Rules       []PermissionRule      `json:"rules,omitempty"`
}

// PermissionRule scopes a grant to one tool and pattern.
type PermissionRule struct {
	ToolName    string `json:"toolName"`
	RuleContent string `json:"ruleContent"`
}

// AllowTool grants toolName for inputs matching rule, for this session.
func AllowTool(toolName, rule string) Permission {
	return Permission{
		Type:        PermissionAddRules,
		Destination: DestinationSession,
		Behavior:    BehaviorAllow,
		Rules:       []PermissionRule{{ToolName: toolName, RuleContent: rule}},
	}
}

// SetMode switches the permission mode at dest.
func SetMode(mode PermissionMode, dest PermissionDestination) Permission {
	return Permission{Type: PermissionSetMode, Destination: dest, Mode: mode}
}

// PermissionResult is the decision for a can_use_tool request.
type PermissionResult struct {
	Behavior Behavior `json:"behavior"`

	// allow
	UpdatedInput       json.RawMessage `json:"updatedInput,omitempty"`
	UpdatedPermissions []Permission    `json:"updatedPermissions,omitempty"`

	// deny
	Message   string `json:"message,omitempty"`
	Interrupt bool   `json:"interrupt,omitempty"`
}

// Allow lets the tool run with input. A nil input is sent as {}.
func Allow(input json.RawMessage, grants ...Permission) PermissionResult {
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	return PermissionResult{Behavior: BehaviorAllow, UpdatedInput: input, UpdatedPermissions: grants}
}

// Deny refuses the tool call with a message shown to the model.
func Deny(message string) PermissionResult {
	return PermissionResult{Behavior: BehaviorDeny, Message: message}
}

// DenyAndInterrupt refuses the tool call and stops the turn.
func DenyAndInterrupt(message string) PermissionResult {
	return PermissionResult{Behavior: BehaviorDeny, Message: message, Interrupt: true}
}

// newInitializeRequest builds the control request that enables tool
// approval callbacks.
func newInitializeRequest() Output {
	return Output{
		Type: TypeControlRequest,
		ControlRequest: &ControlRequest{
			RequestID: "init-" + uuid.NewString(),
			Request:   ControlRequestBody{Subtype: ControlInitialize},
		},
	}
}

// newInterruptRequest builds a control request that stops the current turn.
func newInterruptRequest() Output {
	return Output{
		Type: TypeControlRequest,
		ControlRequest: &ControlRequest{
			RequestID: "interrupt-" + uuid.NewString(),
			Request:   ControlRequestBody{Subtype: ControlInterrupt},
		},
	}
}

// NewControlSuccess answers requestID with payload, which may be nil.
func NewControlSuccess(requestID string, payload any) (Output, error) {
	body := ControlResponseBody{Subtype: ControlSuccess, RequestID: requestID}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Output{}, fmt.Errorf("claude: encode control payload: %w", err)
		}
		body.Response = data
	}
	return Output{Type: TypeControlResponse, ControlResponse: &ControlResponse{Response: body}}, nil
}

// NewControlError answers requestID with an error message.
func NewControlError(requestID, message string) Output {
	return Output{
		Type: TypeControlResponse,
		ControlResponse: &ControlResponse{Response: ControlResponseBody{
			Subtype:   ControlError,
			RequestID: requestID,
			Error:     message,
		}},
	}
}
