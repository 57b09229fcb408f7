package domain

import "context"

// Role is the author of a chat message.
type Role string

const (
	// RoleSystem carries persona and output-format instructions.
	RoleSystem Role = "system"
	// RoleUser carries the question and the enumerated options.
	RoleUser Role = "user"
	// RoleAssistant carries model replies in a transcript.
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a constrained chat completion call.
// LogitBias maps token id to bias strength (-100..100).
type CompletionRequest struct {
	Model       string
	Temperature float32
	Messages    []Message
	LogitBias   map[int]int
	MaxTokens   int
	Stop        []string
}

// CompletionUsage is the token accounting reported by the provider.
type CompletionUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the first choice of a completion.
type CompletionResponse struct {
	Content      string
	FinishReason string
	Usage        CompletionUsage
}

// Completer is the shared chat completion contract between layers.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}
