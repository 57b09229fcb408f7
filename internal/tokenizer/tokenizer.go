// Package tokenizer wraps tiktoken for the token arithmetic of constrained selection.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// BPE ranks are compiled into the binary; nothing is fetched at runtime.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// DefaultEncoding is used when the model name is unknown to tiktoken.
const DefaultEncoding = tiktoken.MODEL_CL100K_BASE

// Tokenizer encodes text with the encoding of one model. Safe for concurrent use.
type Tokenizer struct {
	enc      *tiktoken.Tiktoken
	model    string
	encoding string
}

// New resolves the encoding for model, falling back to cl100k_base.
func New(model string) (*Tokenizer, error) {
	name := EncodingName(model)
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: get encoding %s for %q: %w", name, model, err)
	}
	return &Tokenizer{enc: enc, model: model, encoding: name}, nil
}

// EncodingName returns the encoding tiktoken uses for model, or DefaultEncoding.
func EncodingName(model string) string {
	if name, ok := tiktoken.MODEL_TO_ENCODING[model]; ok {
		return name
	}
	// Longest prefix wins, so "gpt-4o-" is preferred over a shorter match.
	best, name := 0, DefaultEncoding
	for prefix, enc := range tiktoken.MODEL_PREFIX_TO_ENCODING {
		if len(prefix) > best && strings.HasPrefix(model, prefix) {
			best, name = len(prefix), enc
		}
	}
	return name
}

// Model returns the model name the encoding was resolved for.
func (t *Tokenizer) Model() string { return t.model }

// Encoding returns the name of the encoding in use.
func (t *Tokenizer) Encoding() string { return t.encoding }

// Encode returns the token ids of s.
func (t *Tokenizer) Encode(s string) []int {
	return t.enc.Encode(s, nil, nil)
}

// Decode maps token ids back to text.
func (t *Tokenizer) Decode(ids []int) string {
	return t.enc.Decode(ids)
}

// TokenCount returns the number of tokens in s.
func (t *Tokenizer) TokenCount(s string) int {
	return len(t.Encode(s))
}

// AssertSingleToken reports whether every string encodes to exactly one token.
func (t *Tokenizer) AssertSingleToken(ss []string) bool {
	for _, s := range ss {
		if len(t.Encode(s)) != 1 {
			return false
		}
	}
	return true
}

// TokenIDs returns the single token id of each string, in order.
func (t *Tokenizer) TokenIDs(ss []string) ([]int, error) {
	ids := make([]int, len(ss))
	for i, s := range ss {
		enc := t.Encode(s)
		if len(enc) != 1 {
			return nil, fmt.Errorf("%q encodes to %d tokens: %w", s, len(enc), domain.ErrMultiTokenIndex)
		}
		ids[i] = enc[0]
	}
	return ids, nil
}

// DistinctTokens returns the distinct token ids of all strings, in first-seen order.
func (t *Tokenizer) DistinctTokens(ss []string) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, s := range ss {
		for _, id := range t.Encode(s) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Registry hands out one tokenizer per encoding, so models sharing an
// encoding share its ranks.
type Registry struct {
	mu     sync.Mutex
	byName map[string]*Tokenizer
	def    *Tokenizer
}

// NewRegistry loads the encoding of the default model up front.
func NewRegistry(defaultModel string) (*Registry, error) {
	def, err := New(defaultModel)
	if err != nil {
		return nil, err
	}
	return &Registry{byName: map[string]*Tokenizer{def.encoding: def}, def: def}, nil
}

// Default returns the tokenizer of the default model.
func (r *Registry) Default() *Tokenizer { return r.def }

// For returns the tokenizer for model. An empty model gets the default.
func (r *Registry) For(model string) (*Tokenizer, error) {
	if model == "" {
		return r.def, nil
	}
	name := EncodingName(model)

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byName[name]; ok {
		return t, nil
	}
	t, err := New(model)
	if err != nil {
		return nil, err
	}
	r.byName[name] = t
	return t, nil
}
