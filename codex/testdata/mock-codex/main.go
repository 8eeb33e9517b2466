//go:build ignore

// Command mock-codex plays "codex app-server" and "codex exec --json" for
// integration tests.
//
// app-server: initialize, thread/start, turn/start, turn/interrupt and
// thread/archive are answered. A turn echoes its text input, asks for one
// command approval, and completes once the approval is answered; the
// decision is appended to the echoed text. Unknown methods get -32601.
//
// exec: prints one turn echoing the prompt. The prompt "fail" produces
// turn.failed instead.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

const (
	threadID   = "th_mock"
	execThread = "0199a213-81c0-7800-8aa1-bbab2a035a53"
)

func emit(v any) {
	data, _ := json.Marshal(v)
	fmt.Println(string(data))
}

func main() {
	args := os.Args[1:]
	if slices.Contains(args, "--version") {
		fmt.Println("codex-cli 0.104.0")
		return
	}
	if len(args) > 0 && args[0] == "exec" {
		execMode(args)
		return
	}
	appServer()
}

func execMode(args []string) {
	i := slices.Index(args, "--")
	if i < 0 {
		fmt.Fprintln(os.Stderr, "mock-codex: missing --")
		os.Exit(2)
	}
	pos := args[i+1:]
	thread := execThread
	if args[1] == "resume" && len(pos) > 0 {
		thread, pos = pos[0], pos[1:]
	}
	prompt := ""
	if len(pos) > 0 {
		prompt = pos[len(pos)-1]
	}
	fmt.Fprintln(os.Stderr, "mock-codex: exec", prompt)

	emit(map[string]any{"type": "thread.started", "thread_id": thread})
	emit(map[string]any{"type": "turn.started"})
	if prompt == "fail" {
		emit(map[string]any{"type": "turn.failed", "error": map[string]any{"message": "mock failure"}})
		return
	}
	emit(map[string]any{"type": "item.completed", "item": map[string]any{"type": "agent_message", "id": "item_0", "text": prompt}})
	emit(map[string]any{"type": "turn.completed", "usage": map[string]any{"input_tokens": 10, "cached_input_tokens": 0, "output_tokens": 5}})
}

type message struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params struct {
		ThreadID string `json:"threadId"`
		Input    []struct {
			Text string `json:"text"`
		} `json:"input"`
	} `json:"params"`
	Result struct {
		Decision string `json:"decision"`
	} `json:"result"`
}

func appServer() {
	turn := 0
	echo := ""

	s := bufio.NewScanner(os.Stdin)
	s.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for s.Scan() {
		var m message
		if err := json.Unmarshal(s.Bytes(), &m); err != nil {
			fmt.Fprintln(os.Stderr, "mock-codex: bad input:", err)
			os.Exit(2)
		}
		if m.Method == "" {
			// Approval answer for the pending turn.
			turnID := fmt.Sprintf("turn_%d", turn)
			text := echo + " (" + m.Result.Decision + ")"
			item := map[string]any{"type": "agentMessage", "id": "msg_" + turnID, "text": text}
			emit(map[string]any{"method": "item/completed", "params": map[string]any{"threadId": threadID, "turnId": turnID, "item": item}})
			emit(map[string]any{"method": "turn/completed", "params": map[string]any{
				"threadId": threadID, "turnId": turnID,
				"turn": map[string]any{"id": turnID, "items": []any{item}, "status": "completed"},
			}})
			continue
		}
		if len(m.ID) == 0 {
			continue // client notification
		}
		respond := func(result any) {
			emit(map[string]any{"id": m.ID, "result": result})
		}
		switch m.Method {
		case "initialize":
			respond(map[string]any{"userAgent": "mock-codex/0.104.0"})
		case "thread/start":
			emit(map[string]any{"method": "thread/started", "params": map[string]any{"threadId": threadID}})
			respond(map[string]any{"thread": map[string]any{"id": threadID}})
		case "turn/start":
			turn++
			turnID := fmt.Sprintf("turn_%d", turn)
			echo = ""
			if len(m.Params.Input) > 0 {
				echo = m.Params.Input[0].Text
			}
			fmt.Fprintln(os.Stderr, "mock-codex: turn", echo)
			emit(map[string]any{"method": "turn/started", "params": map[string]any{"threadId": threadID, "turnId": turnID}})
			respond(map[string]any{})
			emit(map[string]any{"method": "item/agentMessage/delta", "params": map[string]any{"threadId": threadID, "itemId": "msg_" + turnID, "delta": echo}})
			emit(map[string]any{"id": "approval-" + turnID, "method": "item/commandExecution/requestApproval", "params": map[string]any{
				"threadId": threadID, "turnId": turnID, "callId": "call_1", "command": "echo " + echo, "cwd": "/tmp",
			}})
		case "turn/interrupt", "thread/archive":
			respond(map[string]any{})
		default:
			emit(map[string]any{"id": m.ID, "error": map[string]any{"code": -32601, "message": "method not found: " + m.Method}})
		}
	}
}
