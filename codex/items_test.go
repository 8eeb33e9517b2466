package codex

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeItem(t *testing.T, line string) ThreadItem {
	t.Helper()
	var it ThreadItem
	require.NoError(t, json.Unmarshal([]byte(line), &it))
	return it
}

func TestThreadItem_Variants(t *testing.T) {
	tests := []struct {
		line string
		typ  ItemType
		set  func(ThreadItem) bool
	}{
		{`{"type":"agent_message","id":"m1","text":"hi"}`, ItemAgentMessage, func(it ThreadItem) bool { return it.AgentMessage != nil }},
		{`{"type":"agentMessage","id":"m1","text":"hi"}`, ItemAgentMessage, func(it ThreadItem) bool { return it.AgentMessage != nil }},
		{`{"type":"reasoning","id":"r1","text":"hmm"}`, ItemReasoning, func(it ThreadItem) bool { return it.Reasoning != nil }},
		{`{"type":"command_execution","id":"c1","command":"ls","aggregated_output":"a","status":"completed"}`, ItemCommandExecution, func(it ThreadItem) bool { return it.CommandExecution != nil }},
		{`{"type":"fileChange","id":"f1","changes":[],"status":"completed"}`, ItemFileChange, func(it ThreadItem) bool { return it.FileChange != nil }},
		{`{"type":"mcp_tool_call","id":"x1","server":"s","tool":"t","arguments":{"k":1},"status":"in_progress"}`, ItemMCPToolCall, func(it ThreadItem) bool { return it.MCPToolCall != nil }},
		{`{"type":"webSearch","id":"w1","query":"go"}`, ItemWebSearch, func(it ThreadItem) bool { return it.WebSearch != nil }},
		{`{"type":"todo_list","id":"t1","items":[{"text":"a","completed":true}]}`, ItemTodoList, func(it ThreadItem) bool { return it.TodoList != nil }},
		{`{"type":"error","id":"e1","message":"bad"}`, ItemError, func(it ThreadItem) bool { return it.Error != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			it := decodeItem(t, tt.line)
			assert.Equal(t, tt.typ, it.Type)
			assert.True(t, it.Type.Known())
			assert.True(t, tt.set(it))
			assert.NotEmpty(t, it.ID)
			assert.JSONEq(t, tt.line, string(it.Raw))
		})
	}
}

func TestThreadItem_CommandExecutionFields(t *testing.T) {
	snake := decodeItem(t, `{"type":"command_execution","id":"c1","command":"rm -rf /","aggregated_output":"out","exit_code":2,"status":"declined"}`)
	camel := decodeItem(t, `{"type":"commandExecution","id":"c1","command":"rm -rf /","aggregatedOutput":"out","exitCode":2,"status":"declined"}`)

	for _, it := range []ThreadItem{snake, camel} {
		c := it.CommandExecution
		require.NotNil(t, c)
		assert.Equal(t, "out", c.AggregatedOutput)
		require.NotNil(t, c.ExitCode)
		assert.Equal(t, 2, *c.ExitCode)
		assert.Equal(t, ItemDeclined, c.Status)
	}

	running := decodeItem(t, `{"type":"commandExecution","id":"c2","command":"sleep 1","aggregatedOutput":"","status":"inProgress"}`)
	assert.Equal(t, ItemInProgress, running.CommandExecution.Status)
	assert.Nil(t, running.CommandExecution.ExitCode)
}

func TestThreadItem_UnknownTypeKept(t *testing.T) {
	line := `{"type":"imageView","id":"i1","path":"/tmp/x.png"}`
	it := decodeItem(t, line)
	assert.Equal(t, ItemType("image_view"), it.Type)
	assert.False(t, it.Type.Known())
	assert.Equal(t, "i1", it.ID)
	assert.Nil(t, it.variant())

	out, err := json.Marshal(it)
	require.NoError(t, err)
	assert.JSONEq(t, line, string(out))
}

func TestThreadItem_Rejects(t *testing.T) {
	for _, line := range []string{
		`{"id":"m1","text":"no type"}`,
		`{"type":"agent_message","id":"m1","text":42}`,
		`[]`,
	} {
		var it ThreadItem
		assert.Error(t, json.Unmarshal([]byte(line), &it), line)
	}
}

func TestThreadItem_EncodeDecodeStable(t *testing.T) {
	lines := []string{
		`{"type":"agent_message","id":"m1","text":"hi"}`,
		`{"type":"fileChange","id":"f1","changes":[{"path":"a.go","kind":"update"}],"status":"failed"}`,
		`{"type":"mcp_tool_call","id":"x1","server":"s","tool":"t","status":"completed","result":{"content":[{"type":"text"}],"structured_content":null}}`,
	}
	for _, line := range lines {
		first := decodeItem(t, line)
		enc, err := json.Marshal(first)
		require.NoError(t, err)
		second := decodeItem(t, string(enc))
		second.Raw, first.Raw = nil, nil
		assert.Equal(t, first, second, line)
	}
}

func TestSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"agentMessage":     "agent_message",
		"agent_message":    "agent_message",
		"mcpToolCall":      "mcp_tool_call",
		"inProgress":       "in_progress",
		"error":            "error",
		"commandExecution": "command_execution",
	} {
		assert.Equal(t, want, snakeCase(in), in)
	}
}
