package openai

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// instantTimer fires as soon as it is started.
type instantTimer struct{ c chan time.Time }

func newInstantTimer() backoff.Timer { return &instantTimer{c: make(chan time.Time, 1)} }

func (t *instantTimer) Start(time.Duration) {
	select {
	case t.c <- time.Now():
	default:
	}
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

// chatRequest captures the fields the completer is expected to send.
type chatRequest struct {
	Model       string         `json:"model"`
	Messages    []chatMessage  `json:"messages"`
	Temperature float32        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
	Stop        []string       `json:"stop"`
	LogitBias   map[string]int `json:"logit_bias"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func writeChatResponse(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":     120,
			"completion_tokens": 3,
			"total_tokens":      123,
		},
	})
}
