package selector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

const (
	sectionsStop = "END"
	// Output budget when the caller sets no limit.
	defaultSectionsMaxTokens = 500
)

// SectionRequest picks sections of one act by section number.
type SectionRequest struct {
	ActName string
	Query   string
	// Contents are table-of-contents lines ("12 Tenant's right of access").
	// Parts, divisions and spent ranges are listed but cannot be picked.
	Contents []string
	// Limit caps output tokens. Zero uses the default budget.
	Limit       int
	Model       string
	Temperature *float32
}

// PickSections returns the contents lines whose section numbers the model lists,
// in the model's order. Unknown numbers are dropped and logged.
func (s *Service) PickSections(ctx context.Context, req SectionRequest) ([]string, error) {
	byNumber := make(map[string]string, len(req.Contents))
	numbers := make([]string, 0, len(req.Contents))
	var listing strings.Builder
	for _, line := range req.Contents {
		listing.WriteString(line)
		listing.WriteByte('\n')
		e, ok := domain.ParseContentsLine(line)
		if !ok || e.Kind != domain.EntrySection {
			continue
		}
		if _, dup := byNumber[e.Number]; dup {
			continue
		}
		byNumber[e.Number] = line
		numbers = append(numbers, e.Number)
	}
	if len(numbers) == 0 {
		s.observe(modeSections, "invalid")
		return nil, fmt.Errorf("pick sections: %w", domain.ErrEmptyCandidates)
	}

	tok, err := s.tokenizer(req.Model)
	if err != nil {
		s.observe(modeSections, "invalid")
		return nil, fmt.Errorf("pick sections: %w", err)
	}
	// Numbers are encoded in running text so the space-prefixed variants are allowed too.
	allowed := tok.DistinctTokens([]string{strings.Join(numbers, " ") + " "})
	allowed = append(allowed, tok.Encode(sectionsStop)...)
	if len(allowed) == 0 {
		s.observe(modeSections, "invalid")
		return nil, fmt.Errorf("pick sections: %w", domain.ErrEmptyTokenList)
	}
	if len(allowed) > domain.MaxBiasTokens {
		s.observe(modeSections, "invalid")
		return nil, fmt.Errorf("pick sections: %d allowed tokens: %w", len(allowed), domain.ErrTooManyCandidates)
	}

	maxTokens := req.Limit
	if maxTokens <= 0 {
		maxTokens = defaultSectionsMaxTokens
	}
	user := strings.NewReplacer(
		"{act}", req.ActName,
		"{options}", listing.String(),
		"{query}", req.Query,
	).Replace(sectionsTemplate)

	creq := s.request(Request{Model: req.Model, Temperature: req.Temperature}, []domain.Message{
		{Role: domain.RoleSystem, Content: sectionsSystem},
		{Role: domain.RoleUser, Content: user},
	}, bias(allowed), maxTokens, []string{sectionsStop})

	resp, err := s.llm.Complete(ctx, creq)
	if err != nil {
		s.observe(modeSections, "error")
		return nil, fmt.Errorf("pick sections: %w", err)
	}

	var picked, dropped []string
	seen := make(map[string]struct{})
	for _, piece := range strings.Fields(strings.TrimSuffix(strings.TrimSpace(resp.Content), sectionsStop)) {
		piece = strings.TrimSuffix(piece, ".")
		line, ok := byNumber[piece]
		if !ok {
			dropped = append(dropped, piece)
			continue
		}
		if _, dup := seen[piece]; dup {
			continue
		}
		seen[piece] = struct{}{}
		picked = append(picked, line)
	}
	if len(dropped) > 0 {
		s.logger.Warn("Dropped unknown section numbers",
			zap.String("act", req.ActName),
			zap.Strings("dropped", dropped),
		)
	}
	s.observe(modeSections, "success")
	return picked, nil
}
