//go:build ignore

// Command mock-claude speaks the bidirectional stream-json protocol for
// integration tests. Each user message gets an init, an assistant echo, and
// a result; an initialize control request is acknowledged. It exits when
// stdin closes.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

const sessionID = "mock-session"

func emit(v any) {
	data, _ := json.Marshal(v)
	fmt.Println(string(data))
}

func main() {
	for _, a := range os.Args[1:] {
		if a == "--version" {
			fmt.Println("2.1.47 (Claude Code)")
			return
		}
	}

	s := bufio.NewScanner(os.Stdin)
	s.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for s.Scan() {
		var msg struct {
			Type      string `json:"type"`
			RequestID string `json:"request_id"`
			Request   struct {
				Subtype string `json:"subtype"`
			} `json:"request"`
			Message struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"message"`
		}
		if err := json.Unmarshal(s.Bytes(), &msg); err != nil {
			fmt.Fprintln(os.Stderr, "mock-claude: bad input:", err)
			os.Exit(2)
		}
		switch msg.Type {
		case "control_request":
			emit(map[string]any{
				"type": "control_response",
				"response": map[string]any{
					"subtype":    "success",
					"request_id": msg.RequestID,
				},
			})
		case "user":
			text := ""
			if len(msg.Message.Content) > 0 {
				text = msg.Message.Content[0].Text
			}
			if text == "ping - respond with just the word 'pong' and nothing else" {
				text = "pong"
			}
			fmt.Fprintln(os.Stderr, "mock-claude: turn", text)
			emit(map[string]any{"type": "system", "subtype": "init", "session_id": sessionID, "model": "mock"})
			emit(map[string]any{
				"type":       "assistant",
				"session_id": sessionID,
				"message": map[string]any{
					"role":    "assistant",
					"content": []any{map[string]any{"type": "text", "text": text}},
				},
			})
			emit(map[string]any{
				"type": "result", "subtype": "success", "is_error": false,
				"duration_ms": 1, "duration_api_ms": 1, "num_turns": 1,
				"result": text, "session_id": sessionID, "total_cost_usd": 0,
			})
		}
	}
}
