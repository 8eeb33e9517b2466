package codex

import (
	"encoding/json"
	"fmt"

	"github.com/dmora/agentwire"
	"github.com/dmora/agentwire/jsonrpc"
)

// Client requests.
const (
	MethodInitialize    = "initialize"
	MethodThreadStart   = "thread/start"
	MethodThreadArchive = "thread/archive"
	MethodTurnStart     = "turn/start"
	MethodTurnInterrupt = "turn/interrupt"
	MethodTurnSteer     = "turn/steer"
)

// MethodInitialized is the client notification sent after a successful
// initialize.
const MethodInitialized = "initialized"

// Server notifications.
const (
	MethodThreadStarted           = "thread/started"
	MethodThreadStatusChanged     = "thread/status/changed"
	MethodThreadTokenUsageUpdated = "thread/tokenUsage/updated"
	MethodTurnStarted             = "turn/started"
	MethodTurnCompleted           = "turn/completed"
	MethodItemStarted             = "item/started"
	MethodItemCompleted           = "item/completed"
	MethodAgentMessageDelta       = "item/agentMessage/delta"
	MethodCommandOutputDelta      = "item/commandExecution/outputDelta"
	MethodFileChangeOutputDelta   = "item/fileChange/outputDelta"
	MethodReasoningDelta          = "item/reasoning/summaryTextDelta"
	MethodError                   = "error"
)

// Server requests that expect an approval decision.
const (
	MethodCommandApproval    = "item/commandExecution/requestApproval"
	MethodFileChangeApproval = "item/fileChange/requestApproval"
)

// InputType tags a UserInput.
type InputType string

const (
	InputText  InputType = "text"
	InputImage InputType = "image"
)

// UserInput is one part of a turn's input.
type UserInput struct {
	Type InputType `json:"type"`
	Text string    `json:"text,omitempty"`
	// Data is an image encoded as a data URI ("data:image/png;base64,...").
	Data string `json:"data,omitempty"`
}

// TextInput returns a text input.
func TextInput(text string) UserInput { return UserInput{Type: InputText, Text: text} }

// ImageInput returns an image input from a data URI.
func ImageInput(dataURI string) UserInput { return UserInput{Type: InputImage, Data: dataURI} }

// ClientInfo identifies the client in the initialize handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Title   string `json:"title,omitempty"`
}

// InitializeCapabilities are the features the client opts into.
type InitializeCapabilities struct {
	ExperimentalAPI           bool     `json:"experimentalApi"`
	OptOutNotificationMethods []string `json:"optOutNotificationMethods,omitempty"`
}

type InitializeParams struct {
	ClientInfo   ClientInfo              `json:"clientInfo"`
	Capabilities *InitializeCapabilities `json:"capabilities,omitempty"`
}

type InitializeResponse struct {
	UserAgent string `json:"userAgent"`
}

// Client identity sent by Start.
const (
	ClientName    = "agentwire"
	ClientVersion = "0.1.0"
)

// DefaultInitializeParams is what Start sends.
func DefaultInitializeParams() InitializeParams {
	return InitializeParams{ClientInfo: ClientInfo{Name: ClientName, Version: ClientVersion}}
}

type ThreadStartParams struct {
	// Instructions are extra system instructions for the agent.
	Instructions string            `json:"instructions,omitempty"`
	Tools        []json.RawMessage `json:"tools,omitempty"`
}

// Thread is the thread object newer servers return.
type Thread struct {
	ID string `json:"id"`
}

// ThreadStartResponse carries the new thread's id either flat or nested,
// depending on the server version. Use ID.
type ThreadStartResponse struct {
	ThreadID string  `json:"threadId,omitempty"`
	Thread   *Thread `json:"thread,omitempty"`
}

// ID returns the new thread's id.
func (r ThreadStartResponse) ID() string {
	if r.ThreadID != "" {
		return r.ThreadID
	}
	if r.Thread != nil {
		return r.Thread.ID
	}
	return ""
}

type ThreadArchiveParams struct {
	ThreadID string `json:"threadId"`
}

type TurnStartParams struct {
	ThreadID string      `json:"threadId"`
	Input    []UserInput `json:"input"`
	// Model, ReasoningEffort and SandboxPolicy override the thread's
	// settings for this turn only.
	Model           string          `json:"model,omitempty"`
	ReasoningEffort ReasoningEffort `json:"reasoningEffort,omitempty"`
	SandboxPolicy   json.RawMessage `json:"sandboxPolicy,omitempty"`
}

type TurnStartResponse struct {
	Turn *Turn `json:"turn,omitempty"`
}

type TurnInterruptParams struct {
	ThreadID string `json:"threadId"`
}

// TurnSteerParams adds input to the turn in progress.
type TurnSteerParams struct {
	ThreadID       string      `json:"threadId"`
	Input          []UserInput `json:"input"`
	ExpectedTurnID string      `json:"expectedTurnId,omitempty"`
}

// TurnStatus is the state of a turn.
type TurnStatus string

const (
	TurnCompleted   TurnStatus = "completed"
	TurnInterrupted TurnStatus = "interrupted"
	TurnFailed      TurnStatus = "failed"
	TurnInProgress  TurnStatus = "inProgress"
)

func (s TurnStatus) Known() bool {
	switch s {
	case TurnCompleted, TurnInterrupted, TurnFailed, TurnInProgress:
		return true
	}
	return false
}

// ThreadStatus is the state of a thread.
type ThreadStatus string

const (
	ThreadNotLoaded   ThreadStatus = "notLoaded"
	ThreadIdle        ThreadStatus = "idle"
	ThreadActive      ThreadStatus = "active"
	ThreadSystemError ThreadStatus = "systemError"
)

func (s ThreadStatus) Known() bool {
	switch s {
	case ThreadNotLoaded, ThreadIdle, ThreadActive, ThreadSystemError:
		return true
	}
	return false
}

type TurnError struct {
	Message        string          `json:"message"`
	CodexErrorInfo json.RawMessage `json:"codexErrorInfo,omitempty"`
}

// Turn is a finished (or running) turn and the items it produced.
type Turn struct {
	ID     string       `json:"id"`
	Items  []ThreadItem `json:"items"`
	Status TurnStatus   `json:"status"`
	Error  *TurnError   `json:"error,omitempty"`
}

// TokenUsage is cumulative usage for a thread.
type TokenUsage struct {
	InputTokens       int64 `json:"inputTokens"`
	OutputTokens      int64 `json:"outputTokens"`
	CachedInputTokens int64 `json:"cachedInputTokens"`
}

type ThreadStartedNotification struct {
	ThreadID string `json:"threadId"`
}

type ThreadStatusChangedNotification struct {
	ThreadID string       `json:"threadId"`
	Status   ThreadStatus `json:"status"`
}

type ThreadTokenUsageUpdatedNotification struct {
	ThreadID string     `json:"threadId"`
	Usage    TokenUsage `json:"usage"`
}

type TurnStartedNotification struct {
	ThreadID string `json:"threadId"`
	TurnID   string `json:"turnId"`
}

type TurnCompletedNotification struct {
	ThreadID string `json:"threadId"`
	TurnID   string `json:"turnId"`
	Turn     Turn   `json:"turn"`
}

// ItemNotification is the body of item/started and item/completed.
type ItemNotification struct {
	ThreadID string     `json:"threadId"`
	TurnID   string     `json:"turnId"`
	Item     ThreadItem `json:"item"`
}

// DeltaNotification is the body of every incremental output notification:
// agent message text, command output, file change output, reasoning
// summary.
type DeltaNotification struct {
	ThreadID string `json:"threadId"`
	ItemID   string `json:"itemId"`
	Delta    string `json:"delta"`
}

type ErrorNotification struct {
	Error     string `json:"error"`
	ThreadID  string `json:"threadId,omitempty"`
	TurnID    string `json:"turnId,omitempty"`
	WillRetry bool   `json:"willRetry"`
}

// ApprovalDecision answers an approval request.
type ApprovalDecision string

const (
	DecisionAccept           ApprovalDecision = "accept"
	DecisionAcceptForSession ApprovalDecision = "acceptForSession"
	DecisionDecline          ApprovalDecision = "decline"
	// DecisionCancel declines and ends the turn.
	DecisionCancel ApprovalDecision = "cancel"
)

func (d ApprovalDecision) Known() bool {
	switch d {
	case DecisionAccept, DecisionAcceptForSession, DecisionDecline, DecisionCancel:
		return true
	}
	return false
}

type CommandApprovalParams struct {
	ThreadID string `json:"threadId"`
	TurnID   string `json:"turnId"`
	CallID   string `json:"callId"`
	Command  string `json:"command"`
	Cwd      string `json:"cwd"`
	Reason   string `json:"reason,omitempty"`
}

type FileChangeApprovalParams struct {
	ThreadID string `json:"threadId"`
	TurnID   string `json:"turnId"`
	CallID   string `json:"callId"`
	// Changes is patch-format specific.
	Changes json.RawMessage `json:"changes"`
	Reason  string          `json:"reason,omitempty"`
}

// ApprovalResponse is the result sent back for an approval request.
type ApprovalResponse struct {
	Decision ApprovalDecision `json:"decision"`
}

// ServerMessage is a notification or a server request read from the
// app-server. Requests must be answered with Respond, RespondError or
// RespondApproval.
type ServerMessage struct {
	Kind   jsonrpc.Kind
	ID     jsonrpc.RequestID // requests only
	Method string
	Params json.RawMessage
}

// IsRequest reports whether m expects a response.
func (m ServerMessage) IsRequest() bool { return m.Kind == jsonrpc.KindRequest }

func serverMessage(m jsonrpc.Message) ServerMessage {
	return ServerMessage{Kind: m.Kind, ID: m.ID, Method: m.Method, Params: m.Params}
}

// DecodeParams decodes m's params into T.
//
//	if m.Method == codex.MethodAgentMessageDelta {
//	    d, err := codex.DecodeParams[codex.DeltaNotification](m)
//	}
func DecodeParams[T any](m ServerMessage) (T, error) {
	var v T
	if len(m.Params) == 0 {
		return v, &agentwire.ProtocolError{Op: m.Method, Msg: "missing params"}
	}
	if err := json.Unmarshal(m.Params, &v); err != nil {
		return v, &agentwire.DecodeError{Line: string(m.Params), Err: fmt.Errorf("%s params: %w", m.Method, err)}
	}
	return v, nil
}
