package selector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

var tenancyActs = []string{"Commercial Tenancy Act", "Residential Tenancy Act", "Strata Property Act"}

func TestPickOne_StubbedIndex(t *testing.T) {
	llm := &mockCompleter{responses: []string{"1"}}
	svc := newTestService(llm)

	got, err := svc.PickOne(context.Background(), Request{Query: "renter rights", Candidates: tenancyActs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Residential Tenancy Act" {
		t.Errorf("expected Residential Tenancy Act, got %q", got)
	}

	req := llm.last()
	if req.MaxTokens != 1 {
		t.Errorf("expected max_tokens 1, got %d", req.MaxTokens)
	}
	if len(req.LogitBias) != 3 {
		t.Errorf("expected 3 biased tokens, got %v", req.LogitBias)
	}
	for id, b := range req.LogitBias {
		if b != 100 {
			t.Errorf("token %d bias %d, want 100", id, b)
		}
	}
	if req.Model != "gpt-3.5-turbo" {
		t.Errorf("expected configured model, got %q", req.Model)
	}
	if req.Messages[0].Role != domain.RoleSystem || req.Messages[0].Content != StatuteSingle.System {
		t.Errorf("unexpected system message: %+v", req.Messages[0])
	}
	if !strings.Contains(req.Messages[1].Content, "1: Residential Tenancy Act\n") {
		t.Errorf("user message lacks listing: %q", req.Messages[1].Content)
	}
	if !strings.Contains(req.Messages[1].Content, "renter rights") {
		t.Errorf("user message lacks query: %q", req.Messages[1].Content)
	}
}

func TestPickOne_TooManyCandidates(t *testing.T) {
	llm := &mockCompleter{responses: []string{"0"}}
	svc := newTestService(llm)

	_, err := svc.PickOne(context.Background(), Request{Query: "q", Candidates: items(301)})
	if !errors.Is(err, domain.ErrTooManyCandidates) {
		t.Fatalf("expected ErrTooManyCandidates, got %v", err)
	}
	if llm.calls() != 0 {
		t.Errorf("expected no provider call, got %d", llm.calls())
	}
}

func TestPickOne_AtCapIsAccepted(t *testing.T) {
	llm := &mockCompleter{responses: []string{"299"}}
	svc := newTestService(llm)

	got, err := svc.PickOne(context.Background(), Request{Query: "q", Candidates: items(300)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "item299" {
		t.Errorf("expected item299, got %q", got)
	}
}

func TestPickOne_EmptyCandidates(t *testing.T) {
	llm := &mockCompleter{responses: []string{"0"}}
	svc := newTestService(llm)

	_, err := svc.PickOne(context.Background(), Request{Query: "q"})
	if !errors.Is(err, domain.ErrEmptyCandidates) {
		t.Fatalf("expected ErrEmptyCandidates, got %v", err)
	}
	if llm.calls() != 0 {
		t.Errorf("expected no provider call, got %d", llm.calls())
	}
}

func TestPickOne_MultiTokenIndex(t *testing.T) {
	llm := &mockCompleter{responses: []string{"0"}}
	svc := New(llm, fakeTokenizer{splitDigits: true}, Config{}, zap.NewNop())

	_, err := svc.PickOne(context.Background(), Request{Query: "q", Candidates: items(12)})
	if !errors.Is(err, domain.ErrMultiTokenIndex) {
		t.Fatalf("expected ErrMultiTokenIndex, got %v", err)
	}
	if llm.calls() != 0 {
		t.Errorf("expected no provider call, got %d", llm.calls())
	}
}

func TestPickOne_RetriesUndecodableAnswer(t *testing.T) {
	llm := &mockCompleter{responses: []string{"7", "2"}}
	svc := newTestService(llm)

	got, err := svc.PickOne(context.Background(), Request{Query: "q", Candidates: tenancyActs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Strata Property Act" {
		t.Errorf("expected second answer to win, got %q", got)
	}
	if llm.calls() != 2 {
		t.Errorf("expected 2 calls, got %d", llm.calls())
	}
}

func TestPickOne_DecodeExhausted(t *testing.T) {
	llm := &mockCompleter{responses: []string{"x"}}
	svc := newTestService(llm)

	_, err := svc.PickOne(context.Background(), Request{Query: "q", Candidates: tenancyActs})
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if llm.calls() != DefaultDecodeAttempts {
		t.Errorf("expected %d calls, got %d", DefaultDecodeAttempts, llm.calls())
	}
}

func TestPickOne_ProviderUnavailable(t *testing.T) {
	llm := &mockCompleter{err: domain.NewProviderError("complete", 3, errors.New("502"))}
	svc := newTestService(llm)

	_, err := svc.PickOne(context.Background(), Request{Query: "q", Candidates: tenancyActs})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if llm.calls() != 1 {
		t.Errorf("provider failures are retried by the transport, got %d selector calls", llm.calls())
	}
}

func TestPickOne_RequestOverrides(t *testing.T) {
	llm := &mockCompleter{responses: []string{"0"}}
	svc := newTestService(llm)
	temp := float32(0.7)

	_, err := svc.PickOne(context.Background(), Request{
		Query:       "q",
		Candidates:  tenancyActs,
		Prompt:      GenericSingle,
		Model:       "gpt-4",
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := llm.last()
	if req.Model != "gpt-4" || req.Temperature != 0.7 {
		t.Errorf("overrides not applied: model=%q temp=%v", req.Model, req.Temperature)
	}
	if req.Messages[0].Content != GenericSingle.System {
		t.Errorf("expected generic system prompt, got %q", req.Messages[0].Content)
	}
}

func TestPickOne_RoundTrip(t *testing.T) {
	candidates := items(40)
	for i, want := range candidates {
		llm := &mockCompleter{responses: []string{strconv.Itoa(i)}}
		svc := newTestService(llm)

		got, err := svc.PickOne(context.Background(), Request{Query: "q", Candidates: candidates})
		if err != nil {
			t.Fatalf("index %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("index %d: got %q, want %q", i, got, want)
		}
	}
}

func TestPickMany_TenItems(t *testing.T) {
	llm := &mockCompleter{responses: []string{"0 2 4"}}
	svc := newTestService(llm)
	corpus := items(10)

	got, err := svc.PickMany(context.Background(), Request{Query: "q", Candidates: corpus, ResultsRatio: 0.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"item0", "item2", "item4"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	req := llm.last()
	if req.MaxTokens != 4 {
		t.Errorf("expected max_tokens 4, got %d", req.MaxTokens)
	}
	if len(req.Stop) != 1 || req.Stop[0] != "." {
		t.Errorf("expected stop [.], got %v", req.Stop)
	}
	if req.LogitBias[spaceToken] != 100 || req.LogitBias[dotToken] != 100 {
		t.Errorf("separator and stop tokens not biased: %v", req.LogitBias)
	}
	if len(req.LogitBias) != 12 {
		t.Errorf("expected 10 index tokens + separator + stop, got %d", len(req.LogitBias))
	}
}

func TestPickMany_NoStop(t *testing.T) {
	llm := &mockCompleter{responses: []string{"1"}}
	svc := newTestService(llm)

	_, err := svc.PickMany(context.Background(), Request{Query: "q", Candidates: tenancyActs, ResultsRatio: 1, NoStop: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := llm.last()
	if len(req.Stop) != 0 {
		t.Errorf("expected no stop sequences, got %v", req.Stop)
	}
	if _, ok := req.LogitBias[dotToken]; ok {
		t.Error("stop token should not be biased")
	}
}

func TestPickMany_DropsUnknownAndDuplicates(t *testing.T) {
	llm := &mockCompleter{responses: []string{" 3 3 99 1."}}
	svc := newTestService(llm)

	got, err := svc.PickMany(context.Background(), Request{Query: "q", Candidates: items(5), ResultsRatio: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"item3", "item1"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPickMany_ResultBound(t *testing.T) {
	corpus := items(20)
	valid := make(map[string]bool)
	for _, c := range corpus {
		valid[c] = true
	}

	for _, ratio := range []float64{0.05, 0.1, 0.2, 0.5, 1} {
		llm := &mockCompleter{responses: []string{"0 1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16 17 18 19 42"}}
		svc := newTestService(llm)

		got, err := svc.PickMany(context.Background(), Request{Query: "q", Candidates: corpus, ResultsRatio: ratio})
		if err != nil {
			t.Fatalf("ratio %v: unexpected error: %v", ratio, err)
		}
		limit := MaxResults(MaxOutputTokens(len(corpus), ratio))
		if len(got) > limit {
			t.Errorf("ratio %v: %d results exceed bound %d", ratio, len(got), limit)
		}
		for _, item := range got {
			if !valid[item] {
				t.Errorf("ratio %v: invented item %q", ratio, item)
			}
		}
	}
}

func TestPickMany_InvalidRatio(t *testing.T) {
	llm := &mockCompleter{responses: []string{"0"}}
	svc := newTestService(llm)

	for _, ratio := range []float64{0, -0.1, 1.5} {
		_, err := svc.PickMany(context.Background(), Request{Query: "q", Candidates: tenancyActs, ResultsRatio: ratio})
		if !errors.Is(err, domain.ErrInvalidRatio) {
			t.Errorf("ratio %v: expected ErrInvalidRatio, got %v", ratio, err)
		}
	}
	if llm.calls() != 0 {
		t.Errorf("expected no provider call, got %d", llm.calls())
	}
}

func TestPickMany_TooManyCandidates(t *testing.T) {
	llm := &mockCompleter{responses: []string{"0"}}
	svc := newTestService(llm)

	_, err := svc.PickMany(context.Background(), Request{Query: "q", Candidates: items(301), ResultsRatio: 0.2})
	if !errors.Is(err, domain.ErrTooManyCandidates) {
		t.Fatalf("expected ErrTooManyCandidates, got %v", err)
	}
}

func TestMaxOutputTokens(t *testing.T) {
	tests := []struct {
		n     int
		ratio float64
		want  int
	}{
		{10, 0.2, 4},
		{3, 0.2, 1},
		{1, 1, 1},
		{5, 1, 9},
		{300, 0.1, 60},
		{1, 0.01, 1},
	}
	for _, tt := range tests {
		if got := MaxOutputTokens(tt.n, tt.ratio); got != tt.want {
			t.Errorf("MaxOutputTokens(%d, %v) = %d, want %d", tt.n, tt.ratio, got, tt.want)
		}
	}
}

func TestPickMany_BiasCap(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		noStop bool
		ok     bool
	}{
		{"separator and stop fit", domain.MaxMultiCandidates, false, true},
		{"one over with stop", domain.MaxMultiCandidates + 1, false, false},
		{"at single-pick cap", domain.MaxCandidates, false, false},
		{"no stop frees one entry", domain.MaxMultiCandidates + 1, true, true},
		{"no stop still over", domain.MaxCandidates, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockCompleter{responses: []string{"0"}}
			svc := newTestService(llm)

			_, err := svc.PickMany(t.Context(), Request{
				Query: "q", Candidates: items(tt.n), ResultsRatio: 0.2, NoStop: tt.noStop,
			})
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got := len(llm.last().LogitBias); got > domain.MaxBiasTokens {
					t.Errorf("sent %d bias entries", got)
				}
				return
			}
			if !errors.Is(err, domain.ErrTooManyCandidates) {
				t.Fatalf("expected ErrTooManyCandidates, got %v", err)
			}
			if llm.calls() != 0 {
				t.Errorf("expected no provider call, got %d", llm.calls())
			}
		})
	}
}

func newOverrideService(llm *mockCompleter) *Service {
	return New(llm, fakeTokenizer{}, Config{
		Model: "gpt-4",
		Tokenizers: func(model string) (Tokenizer, error) {
			switch model {
			case "gpt-4":
				return fakeTokenizer{}, nil
			case "gpt-4o":
				return fakeTokenizer{shift: 1_000_000}, nil
			}
			return nil, errors.New("unknown encoding")
		},
	}, zap.NewNop())
}

func TestPickOne_OverrideModelUsesItsEncoding(t *testing.T) {
	llm := &mockCompleter{responses: []string{"1"}}
	svc := newOverrideService(llm)

	got, err := svc.PickOne(t.Context(), Request{Query: "q", Candidates: tenancyActs, Model: "gpt-4o"})
	if err != nil || got != "Residential Tenancy Act" {
		t.Fatalf("got %q, %v", got, err)
	}
	req := llm.last()
	for i := range tenancyActs {
		if _, ok := req.LogitBias[1_000_000+10000+i]; !ok {
			t.Errorf("index %d not biased with the override encoding: %v", i, req.LogitBias)
		}
	}
	if _, ok := req.LogitBias[10000]; ok {
		t.Error("default encoding ids leaked into the override request")
	}
}

func TestPickMany_OverrideModelUsesItsEncoding(t *testing.T) {
	llm := &mockCompleter{responses: []string{"0 2"}}
	svc := newOverrideService(llm)

	if _, err := svc.PickMany(t.Context(), Request{Query: "q", Candidates: items(5), ResultsRatio: 1, Model: "gpt-4o"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := llm.last()
	if req.LogitBias[1_000_000+spaceToken] != allowBias || req.LogitBias[1_000_000+dotToken] != allowBias {
		t.Errorf("separator and stop must come from the override encoding: %v", req.LogitBias)
	}
	if _, ok := req.LogitBias[spaceToken]; ok {
		t.Error("default separator id leaked into the override request")
	}
}

func TestPickOne_DefaultModelUsesDefaultEncoding(t *testing.T) {
	llm := &mockCompleter{responses: []string{"0"}}
	svc := newOverrideService(llm)

	if _, err := svc.PickOne(t.Context(), Request{Query: "q", Candidates: tenancyActs}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := llm.last().LogitBias[10000]; !ok {
		t.Errorf("expected default ids, got %v", llm.last().LogitBias)
	}
}

func TestPickOne_UnresolvableModel(t *testing.T) {
	llm := &mockCompleter{responses: []string{"0"}}
	svc := newOverrideService(llm)

	if _, err := svc.PickOne(t.Context(), Request{Query: "q", Candidates: tenancyActs, Model: "mystery"}); err == nil {
		t.Fatal("expected an error for a model without a tokenizer")
	}
	if llm.calls() != 0 {
		t.Errorf("expected no provider call, got %d", llm.calls())
	}
}
