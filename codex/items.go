package codex

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ItemType tags a ThreadItem. Servers send either snake_case or camelCase
// tags; both decode to the snake_case constants below.
type ItemType string

const (
	ItemAgentMessage     ItemType = "agent_message"
	ItemReasoning        ItemType = "reasoning"
	ItemCommandExecution ItemType = "command_execution"
	ItemFileChange       ItemType = "file_change"
	ItemMCPToolCall      ItemType = "mcp_tool_call"
	ItemWebSearch        ItemType = "web_search"
	ItemTodoList         ItemType = "todo_list"
	ItemError            ItemType = "error"
)

func (t ItemType) Known() bool {
	switch t {
	case ItemAgentMessage, ItemReasoning, ItemCommandExecution, ItemFileChange,
		ItemMCPToolCall, ItemWebSearch, ItemTodoList, ItemError:
		return true
	}
	return false
}

// ItemStatus is the progress of a command, patch or tool call. Both
// "inProgress" and "in_progress" decode to ItemInProgress.
type ItemStatus string

const (
	ItemInProgress ItemStatus = "in_progress"
	ItemCompleted  ItemStatus = "completed"
	ItemFailed     ItemStatus = "failed"
	ItemDeclined   ItemStatus = "declined"
)

func (s ItemStatus) Known() bool {
	switch s {
	case ItemInProgress, ItemCompleted, ItemFailed, ItemDeclined:
		return true
	}
	return false
}

func (s *ItemStatus) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ItemStatus(snakeCase(v))
	return nil
}

// ChangeKind is what a patch does to one file.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeDelete ChangeKind = "delete"
	ChangeUpdate ChangeKind = "update"
)

func (k ChangeKind) Known() bool {
	switch k {
	case ChangeAdd, ChangeDelete, ChangeUpdate:
		return true
	}
	return false
}

// ThreadItem is one unit of agent output. Exactly one variant pointer is
// set for known types. Items of a type this package does not know keep
// their Type, ID and Raw and have no variant set.
type ThreadItem struct {
	Type ItemType
	ID   string

	AgentMessage     *TextItem
	Reasoning        *TextItem
	CommandExecution *CommandExecutionItem
	FileChange       *FileChangeItem
	MCPToolCall      *MCPToolCallItem
	WebSearch        *WebSearchItem
	TodoList         *TodoListItem
	Error            *ErrorItem

	// Raw is the item as received.
	Raw json.RawMessage
}

// TextItem is an agent message or a reasoning summary.
type TextItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type CommandExecutionItem struct {
	ID               string     `json:"id"`
	Command          string     `json:"command"`
	AggregatedOutput string     `json:"aggregated_output"`
	ExitCode         *int       `json:"exit_code,omitempty"`
	Status           ItemStatus `json:"status"`
}

// UnmarshalJSON accepts camelCase field names as well.
func (c *CommandExecutionItem) UnmarshalJSON(data []byte) error {
	var w struct {
		ID                    string     `json:"id"`
		Command               string     `json:"command"`
		AggregatedOutput      *string    `json:"aggregated_output"`
		AggregatedOutputCamel string     `json:"aggregatedOutput"`
		ExitCode              *int       `json:"exit_code"`
		ExitCodeCamel         *int       `json:"exitCode"`
		Status                ItemStatus `json:"status"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = CommandExecutionItem{ID: w.ID, Command: w.Command, ExitCode: w.ExitCode, Status: w.Status}
	c.AggregatedOutput = w.AggregatedOutputCamel
	if w.AggregatedOutput != nil {
		c.AggregatedOutput = *w.AggregatedOutput
	}
	if c.ExitCode == nil {
		c.ExitCode = w.ExitCodeCamel
	}
	return nil
}

type FileUpdate struct {
	Path string     `json:"path"`
	Kind ChangeKind `json:"kind"`
}

type FileChangeItem struct {
	ID      string       `json:"id"`
	Changes []FileUpdate `json:"changes"`
	Status  ItemStatus   `json:"status"`
}

type MCPToolCallResult struct {
	Content           []json.RawMessage `json:"content"`
	StructuredContent json.RawMessage   `json:"structured_content,omitempty"`
}

type MCPToolCallItem struct {
	ID        string             `json:"id"`
	Server    string             `json:"server"`
	Tool      string             `json:"tool"`
	Arguments json.RawMessage    `json:"arguments,omitempty"`
	Result    *MCPToolCallResult `json:"result,omitempty"`
	Error     *MCPToolCallError  `json:"error,omitempty"`
	Status    ItemStatus         `json:"status"`
}

type MCPToolCallError struct {
	Message string `json:"message"`
}

type WebSearchItem struct {
	ID    string `json:"id"`
	Query string `json:"query"`
}

type TodoEntry struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type TodoListItem struct {
	ID    string      `json:"id"`
	Items []TodoEntry `json:"items"`
}

type ErrorItem struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (it *ThreadItem) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.Type == "" {
		return errors.New("codex: item has no type")
	}
	*it = ThreadItem{
		Type: ItemType(snakeCase(head.Type)),
		ID:   head.ID,
		Raw:  append(json.RawMessage(nil), data...),
	}

	var dst any
	switch it.Type {
	case ItemAgentMessage:
		it.AgentMessage = new(TextItem)
		dst = it.AgentMessage
	case ItemReasoning:
		it.Reasoning = new(TextItem)
		dst = it.Reasoning
	case ItemCommandExecution:
		it.CommandExecution = new(CommandExecutionItem)
		dst = it.CommandExecution
	case ItemFileChange:
		it.FileChange = new(FileChangeItem)
		dst = it.FileChange
	case ItemMCPToolCall:
		it.MCPToolCall = new(MCPToolCallItem)
		dst = it.MCPToolCall
	case ItemWebSearch:
		it.WebSearch = new(WebSearchItem)
		dst = it.WebSearch
	case ItemTodoList:
		it.TodoList = new(TodoListItem)
		dst = it.TodoList
	case ItemError:
		it.Error = new(ErrorItem)
		dst = it.Error
	default:
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("codex: %s item: %w", it.Type, err)
	}
	return nil
}

func (it ThreadItem) MarshalJSON() ([]byte, error) {
	if v := it.variant(); v != nil {
		body, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if !bytes.HasPrefix(body, []byte("{")) || len(body) < 2 {
			return nil, fmt.Errorf("codex: %s item is not an object", it.Type)
		}
		tag, _ := json.Marshal(string(it.Type))
		out := append([]byte(`{"type":`), tag...)
		if len(body) > 2 {
			out = append(out, ',')
		}
		return append(out, body[1:]...), nil
	}
	if len(it.Raw) > 0 {
		return it.Raw, nil
	}
	return nil, fmt.Errorf("codex: cannot encode %q item without content", it.Type)
}

func (it ThreadItem) variant() any {
	switch {
	case it.AgentMessage != nil:
		return it.AgentMessage
	case it.Reasoning != nil:
		return it.Reasoning
	case it.CommandExecution != nil:
		return it.CommandExecution
	case it.FileChange != nil:
		return it.FileChange
	case it.MCPToolCall != nil:
		return it.MCPToolCall
	case it.WebSearch != nil:
		return it.WebSearch
	case it.TodoList != nil:
		return it.TodoList
	case it.Error != nil:
		return it.Error
	}
	return nil
}

// Text returns the text of an agent message or reasoning item.
func (it ThreadItem) Text() string {
	switch {
	case it.AgentMessage != nil:
		return it.AgentMessage.Text
	case it.Reasoning != nil:
		return it.Reasoning.Text
	}
	return ""
}

// snakeCase maps "commandExecution" to "command_execution". Already
// snake_case input is returned unchanged.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
