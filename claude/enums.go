package claude

// Enumerated sub-kinds decode from any string. Values this package does not
// know are kept verbatim and report Known() == false; they never fail the
// enclosing message.

// SystemSubtype distinguishes system messages.
type SystemSubtype string

const (
	SystemInit             SystemSubtype = "init"
	SystemStatus           SystemSubtype = "status"
	SystemCompactBoundary  SystemSubtype = "compact_boundary"
	SystemTaskStarted      SystemSubtype = "task_started"
	SystemTaskProgress     SystemSubtype = "task_progress"
	SystemTaskNotification SystemSubtype = "task_notification"
)

func (s SystemSubtype) Known() bool {
	switch s {
	case SystemInit, SystemStatus, SystemCompactBoundary,
		SystemTaskStarted, SystemTaskProgress, SystemTaskNotification:
		return true
	}
	return false
}

// ResultSubtype distinguishes how a turn ended.
type ResultSubtype string

const (
	ResultSuccess              ResultSubtype = "success"
	ResultErrorMaxTurns        ResultSubtype = "error_max_turns"
	ResultErrorDuringExecution ResultSubtype = "error_during_execution"
)

func (s ResultSubtype) Known() bool {
	switch s {
	case ResultSuccess, ResultErrorMaxTurns, ResultErrorDuringExecution:
		return true
	}
	return false
}

// StopReason is why the model stopped generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
	StopToolUse   StopReason = "tool_use"
)

func (s StopReason) Known() bool {
	switch s {
	case StopEndTurn, StopMaxTokens, StopToolUse:
		return true
	}
	return false
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Known() bool { return r == RoleUser || r == RoleAssistant }

// ContentType tags a content block.
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentImage      ContentType = "image"
	ContentThinking   ContentType = "thinking"
	ContentToolUse    ContentType = "tool_use"
	ContentToolResult ContentType = "tool_result"
)

func (c ContentType) Known() bool {
	switch c {
	case ContentText, ContentImage, ContentThinking, ContentToolUse, ContentToolResult:
		return true
	}
	return false
}

// APIErrorType is the Anthropic API error category.
type APIErrorType string

const (
	APIErrorGeneric        APIErrorType = "api_error"
	APIErrorOverloaded     APIErrorType = "overloaded_error"
	APIErrorInvalidRequest APIErrorType = "invalid_request_error"
	APIErrorAuthentication APIErrorType = "authentication_error"
	APIErrorRateLimit      APIErrorType = "rate_limit_error"
)

func (t APIErrorType) Known() bool {
	switch t {
	case APIErrorGeneric, APIErrorOverloaded, APIErrorInvalidRequest,
		APIErrorAuthentication, APIErrorRateLimit:
		return true
	}
	return false
}

// RateLimitStatus is the state of a rate-limit window.
type RateLimitStatus string

const (
	RateLimitAllowed        RateLimitStatus = "allowed"
	RateLimitAllowedWarning RateLimitStatus = "allowed_warning"
	RateLimitRejected       RateLimitStatus = "rejected"
)

func (s RateLimitStatus) Known() bool {
	switch s {
	case RateLimitAllowed, RateLimitAllowedWarning, RateLimitRejected:
		return true
	}
	return false
}

// RateLimitWindow names the window a rate limit applies to.
type RateLimitWindow string

const (
	WindowFiveHour RateLimitWindow = "five_hour"
	WindowHourly   RateLimitWindow = "hourly"
	WindowSevenDay RateLimitWindow = "seven_day"
)

func (w RateLimitWindow) Known() bool {
	switch w {
	case WindowFiveHour, WindowHourly, WindowSevenDay:
		return true
	}
	return false
}

// ControlSubtype tags control requests and responses.
type ControlSubtype string

const (
	ControlCanUseTool   ControlSubtype = "can_use_tool"
	ControlHookCallback ControlSubtype = "hook_callback"
	ControlMCPMessage   ControlSubtype = "mcp_message"
	ControlInitialize   ControlSubtype = "initialize"
	ControlInterrupt    ControlSubtype = "interrupt"
	ControlSuccess      ControlSubtype = "success"
	ControlError        ControlSubtype = "error"
)

func (s ControlSubtype) Known() bool {
	switch s {
	case ControlCanUseTool, ControlHookCallback, ControlMCPMessage,
		ControlInitialize, ControlInterrupt, ControlSuccess, ControlError:
		return true
	}
	return false
}

// PermissionMode is the CLI permission mode.
type PermissionMode string

const (
	PermissionDefault           PermissionMode = "default"
	PermissionAcceptEdits       PermissionMode = "acceptEdits"
	PermissionBypassPermissions PermissionMode = "bypassPermissions"
	PermissionPlan              PermissionMode = "plan"
)

func (m PermissionMode) Known() bool {
	switch m {
	case PermissionDefault, PermissionAcceptEdits, PermissionBypassPermissions, PermissionPlan:
		return true
	}
	return false
}

// Behavior is the verdict of a permission decision.
type Behavior string

const (
	BehaviorAllow Behavior = "allow"
	BehaviorDeny  Behavior = "deny"
)

func (b Behavior) Known() bool { return b == BehaviorAllow || b == BehaviorDeny }
