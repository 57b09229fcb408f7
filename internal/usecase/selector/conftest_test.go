package selector

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

const (
	spaceToken = 220
	dotToken   = 13
)

// fakeTokenizer encodes digit runs as one token, words by hash, and
// punctuation by rune. splitDigits makes numbers above 9 two tokens.
// shift moves every id, standing in for a different encoding.
type fakeTokenizer struct {
	splitDigits bool
	shift       int
}

func (f fakeTokenizer) Encode(s string) []int {
	out := f.encode(s)
	for i := range out {
		out[i] += f.shift
	}
	return out
}

func (f fakeTokenizer) encode(s string) []int {
	var out []int
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			n, _ := strconv.Atoi(string(runes[i:j]))
			if f.splitDigits && n > 9 {
				out = append(out, 10000+n/10, 10000+n%10)
			} else {
				out = append(out, 10000+n)
			}
			i = j
		case unicode.IsLetter(r):
			j := i
			for j < len(runes) && unicode.IsLetter(runes[j]) {
				j++
			}
			out = append(out, wordToken(string(runes[i:j])))
			i = j
		case r == ' ':
			out = append(out, spaceToken)
			i++
		case r == '.':
			out = append(out, dotToken)
			i++
		default:
			out = append(out, 50000+int(r))
			i++
		}
	}
	return out
}

func wordToken(w string) int {
	switch w {
	case "true":
		return 1904
	case "false":
		return 3934
	}
	h := fnv.New32a()
	h.Write([]byte(w))
	return 20000 + int(h.Sum32()%10000)
}

func (f fakeTokenizer) TokenIDs(ss []string) ([]int, error) {
	ids := make([]int, len(ss))
	for i, s := range ss {
		enc := f.Encode(s)
		if len(enc) != 1 {
			return nil, fmt.Errorf("%q: %w", s, domain.ErrMultiTokenIndex)
		}
		ids[i] = enc[0]
	}
	return ids, nil
}

func (f fakeTokenizer) DistinctTokens(ss []string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, s := range ss {
		for _, id := range f.Encode(s) {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// mockCompleter replays responses in order, repeating the last one.
type mockCompleter struct {
	mu        sync.Mutex
	responses []string
	err       error
	reqs      []domain.CompletionRequest
}

func (m *mockCompleter) Complete(_ context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return domain.CompletionResponse{}, m.err
	}
	i := len(m.reqs) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return domain.CompletionResponse{Content: m.responses[i]}, nil
}

func (m *mockCompleter) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reqs)
}

func (m *mockCompleter) last() domain.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reqs[len(m.reqs)-1]
}

func newTestService(llm *mockCompleter) *Service {
	return New(llm, fakeTokenizer{}, Config{Model: "gpt-3.5-turbo"}, zap.NewNop())
}

func items(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("item%d", i)
	}
	return out
}
