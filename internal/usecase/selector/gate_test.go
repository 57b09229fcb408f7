package selector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

func TestTrueOrFalse(t *testing.T) {
	tests := []struct {
		content string
		want    bool
		err     error
	}{
		{"true", true, nil},
		{"false", false, nil},
		{"maybe", false, domain.ErrDecode},
	}
	for _, tt := range tests {
		llm := &mockCompleter{responses: []string{tt.content}}
		svc := newTestService(llm)

		got, err := svc.TrueOrFalse(context.Background(), "A landlord may enter without notice in an emergency.")
		if !errors.Is(err, tt.err) {
			t.Errorf("%q: expected error %v, got %v", tt.content, tt.err, err)
		}
		if got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.content, got, tt.want)
		}
		req := llm.last()
		if req.MaxTokens != 1 || len(req.LogitBias) != 2 {
			t.Errorf("%q: unexpected constraints: max=%d bias=%v", tt.content, req.MaxTokens, req.LogitBias)
		}
	}
}

func TestChooseTool(t *testing.T) {
	llm := &mockCompleter{responses: []string{"1"}}
	svc := newTestService(llm)
	tools := []string{"statute search", "case law search", "calculator"}

	got, err := svc.ChooseTool(context.Background(), tools, "How long do I have to sue?", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "case law search" {
		t.Errorf("expected case law search, got %q", got)
	}

	req := llm.last()
	system := req.Messages[0].Content
	if !strings.Contains(system, "the user's query") || !strings.Contains(system, "2: calculator") {
		t.Errorf("unexpected system prompt: %q", system)
	}
	if req.Messages[1].Content != "How long do I have to sue?" {
		t.Errorf("expected raw query as user message, got %q", req.Messages[1].Content)
	}
}
