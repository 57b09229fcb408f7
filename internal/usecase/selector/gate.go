package selector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// TrueOrFalse asks the model to judge a statement with a one-token answer.
func (s *Service) TrueOrFalse(ctx context.Context, statement string) (bool, error) {
	ids, err := s.tok.TokenIDs([]string{"true", "false"})
	if err != nil {
		s.observe(modeGate, "invalid")
		return false, fmt.Errorf("logic gate: %w", err)
	}
	creq := s.request(Request{}, []domain.Message{
		{Role: domain.RoleSystem, Content: gateSystem},
		{Role: domain.RoleUser, Content: statement},
	}, bias(ids), 1, nil)

	resp, err := s.llm.Complete(ctx, creq)
	if err != nil {
		s.observe(modeGate, "error")
		return false, fmt.Errorf("logic gate: %w", err)
	}
	switch strings.TrimSpace(resp.Content) {
	case "true":
		s.observe(modeGate, "success")
		return true, nil
	case "false":
		s.observe(modeGate, "success")
		return false, nil
	default:
		s.observe(modeGate, "decode_error")
		s.logger.Warn("Logic gate answered neither true nor false", zap.String("content", resp.Content))
		return false, fmt.Errorf("logic gate: %q: %w", resp.Content, domain.ErrDecode)
	}
}

// ChooseTool picks the tool best suited to task for the given query.
// The tool list is enumerated in the system message; the query is sent as is.
func (s *Service) ChooseTool(ctx context.Context, tools []string, query, task string) (string, error) {
	if task == "" {
		task = "the user's query"
	}
	system := strings.ReplaceAll(toolSystem, "{task}", task)
	return s.PickOne(ctx, Request{
		Query:      query,
		Candidates: tools,
		Prompt:     Prompt{System: system, Template: "{query}"},
	})
}
