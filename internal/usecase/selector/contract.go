package selector

import (
	"context"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// Completer sends constrained chat completions.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error)
}

// Tokenizer provides the token ids used for logit bias.
type Tokenizer interface {
	Encode(s string) []int
	TokenIDs(ss []string) ([]int, error)
	DistinctTokens(ss []string) []int
}
