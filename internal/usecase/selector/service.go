// Package selector asks a completion model to pick among enumerated candidates,
// restricting its output vocabulary to the candidates' index tokens.
package selector

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/metrics"
)

const (
	// Bias strength applied to every allowed token.
	allowBias = 100
	// Token emitted between indices in multi-pick output.
	separator = " "
	// Stop marker for multi-pick output.
	stopMarker = "."
	// DefaultDecodeAttempts bounds re-asks after an undecodable single pick.
	DefaultDecodeAttempts = 3
)

const (
	modeSingle   = "single"
	modeMulti    = "multi"
	modeGate     = "gate"
	modeSections = "sections"
)

// Config holds model defaults for selector calls.
type Config struct {
	Model          string
	Temperature    float32
	DecodeAttempts int
	SinglePrompt   Prompt
	MultiPrompt    Prompt
	// Tokenizers resolves the tokenizer of a per-request model override.
	// Nil uses the tokenizer given to New for every model.
	Tokenizers func(model string) (Tokenizer, error)
}

// Request is one selection over a candidate list.
type Request struct {
	Query      string
	Candidates []string
	// Prompt overrides the configured prompt for the mode.
	Prompt Prompt
	// Model and Temperature override the configured defaults when set.
	Model       string
	Temperature *float32
	// ResultsRatio scales the multi-pick output budget. Ignored by PickOne.
	ResultsRatio float64
	// NoStop disables the "." stop sequence in multi-pick.
	NoStop bool
}

// Service implements constrained single and multi selection.
type Service struct {
	llm    Completer
	tok    Tokenizer
	cfg    Config
	logger *zap.Logger
}

// New creates a selector. Empty prompts fall back to the statute prompts.
func New(llm Completer, tok Tokenizer, cfg Config, logger *zap.Logger) *Service {
	if cfg.DecodeAttempts <= 0 {
		cfg.DecodeAttempts = DefaultDecodeAttempts
	}
	cfg.SinglePrompt = cfg.SinglePrompt.or(StatuteSingle)
	cfg.MultiPrompt = cfg.MultiPrompt.or(StatuteMulti)
	return &Service{llm: llm, tok: tok, cfg: cfg, logger: logger}
}

// MaxOutputTokens is the multi-pick output budget for n candidates:
// ceil((2n-1)*ratio), at least 1. A full answer of n indices needs n index
// tokens and n-1 separators.
func MaxOutputTokens(n int, ratio float64) int {
	raw := float64(2*n-1) * ratio
	// Absorb float noise so (2n-1)*ratio == k stays k.
	k := int(math.Ceil(raw - 1e-9))
	if k < 1 {
		return 1
	}
	return k
}

// MaxResults bounds how many distinct indices fit in maxTokens.
func MaxResults(maxTokens int) int {
	return maxTokens/2 + 1
}

// PickOne returns the single most likely candidate.
// An answer that does not map to a candidate is re-asked; after the attempt
// budget it fails with domain.ErrDecode.
func (s *Service) PickOne(ctx context.Context, req Request) (string, error) {
	m, ids, _, err := s.indexMap(req)
	if err != nil {
		s.observe(modeSingle, "invalid")
		return "", fmt.Errorf("pick one: %w", err)
	}
	metrics.SelectionCandidates.WithLabelValues(modeSingle).Observe(float64(m.Len()))

	prompt := req.Prompt.or(s.cfg.SinglePrompt)
	creq := s.request(req, prompt.Messages(m.Format(), req.Query), bias(ids), 1, nil)

	var content string
	for attempt := 1; attempt <= s.cfg.DecodeAttempts; attempt++ {
		resp, err := s.llm.Complete(ctx, creq)
		if err != nil {
			s.observe(modeSingle, "error")
			return "", fmt.Errorf("pick one: %w", err)
		}
		content = resp.Content
		if item, ok := m.Lookup(strings.TrimSpace(content)); ok {
			s.observe(modeSingle, "success")
			return item, nil
		}
		metrics.SelectionDroppedTotal.WithLabelValues(modeSingle).Inc()
		s.logger.Warn("Undecodable single pick",
			zap.String("content", content),
			zap.Int("attempt", attempt),
			zap.Int("candidates", m.Len()),
		)
	}
	s.observe(modeSingle, "decode_error")
	return "", fmt.Errorf("pick one: %q after %d attempts: %w", content, s.cfg.DecodeAttempts, domain.ErrDecode)
}

// PickMany returns the candidates the model lists, in the model's order,
// deduplicated. Unmappable pieces are dropped and logged.
func (s *Service) PickMany(ctx context.Context, req Request) ([]string, error) {
	if req.ResultsRatio <= 0 || req.ResultsRatio > 1 {
		s.observe(modeMulti, "invalid")
		return nil, fmt.Errorf("pick many: ratio %v: %w", req.ResultsRatio, domain.ErrInvalidRatio)
	}
	m, ids, tok, err := s.indexMap(req)
	if err != nil {
		s.observe(modeMulti, "invalid")
		return nil, fmt.Errorf("pick many: %w", err)
	}
	metrics.SelectionCandidates.WithLabelValues(modeMulti).Observe(float64(m.Len()))

	allowed := append(ids, tok.Encode(separator)...)
	var stop []string
	if !req.NoStop {
		allowed = append(allowed, tok.Encode(stopMarker)...)
		stop = []string{stopMarker}
	}
	if len(allowed) > domain.MaxBiasTokens {
		s.observe(modeMulti, "invalid")
		return nil, fmt.Errorf("pick many: %d candidates need %d bias entries, at most %d: %w",
			m.Len(), len(allowed), domain.MaxBiasTokens, domain.ErrTooManyCandidates)
	}
	maxTokens := MaxOutputTokens(m.Len(), req.ResultsRatio)

	prompt := req.Prompt.or(s.cfg.MultiPrompt)
	creq := s.request(req, prompt.Messages(m.Format(), req.Query), bias(allowed), maxTokens, stop)

	resp, err := s.llm.Complete(ctx, creq)
	if err != nil {
		s.observe(modeMulti, "error")
		return nil, fmt.Errorf("pick many: %w", err)
	}

	picked, dropped := decodeIndices(m, resp.Content)
	if len(dropped) > 0 {
		metrics.SelectionDroppedTotal.WithLabelValues(modeMulti).Add(float64(len(dropped)))
		s.logger.Warn("Dropped unmappable indices",
			zap.Strings("dropped", dropped),
			zap.String("content", resp.Content),
		)
	}
	if limit := MaxResults(maxTokens); len(picked) > limit {
		picked = picked[:limit]
	}
	s.observe(modeMulti, "success")
	return picked, nil
}

// indexMap validates the candidate list and resolves the token id of every
// index with the tokenizer of the request's model.
func (s *Service) indexMap(req Request) (domain.IndexMap, []int, Tokenizer, error) {
	candidates := req.Candidates
	if len(candidates) == 0 {
		return domain.IndexMap{}, nil, nil, domain.ErrEmptyCandidates
	}
	if len(candidates) > domain.MaxCandidates {
		return domain.IndexMap{}, nil, nil, fmt.Errorf(
			"%d candidates, at most %d: %w", len(candidates), domain.MaxCandidates, domain.ErrTooManyCandidates,
		)
	}
	tok, err := s.tokenizer(req.Model)
	if err != nil {
		return domain.IndexMap{}, nil, nil, err
	}
	m := domain.NewIndexMap(candidates)
	ids, err := tok.TokenIDs(m.Keys())
	if err != nil {
		return domain.IndexMap{}, nil, nil, fmt.Errorf("index tokens: %w", err)
	}
	return m, ids, tok, nil
}

// tokenizer returns the tokenizer matching model's encoding.
func (s *Service) tokenizer(model string) (Tokenizer, error) {
	if model == "" || s.cfg.Tokenizers == nil {
		return s.tok, nil
	}
	tok, err := s.cfg.Tokenizers(model)
	if err != nil {
		return nil, fmt.Errorf("tokenizer for %q: %w", model, err)
	}
	return tok, nil
}

func (s *Service) request(
	req Request, msgs []domain.Message, logitBias map[int]int, maxTokens int, stop []string,
) domain.CompletionRequest {
	model := s.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	temperature := s.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	return domain.CompletionRequest{
		Model:       model,
		Temperature: temperature,
		Messages:    msgs,
		LogitBias:   logitBias,
		MaxTokens:   maxTokens,
		Stop:        stop,
	}
}

func (s *Service) observe(mode, status string) {
	metrics.SelectionsTotal.WithLabelValues(mode, status).Inc()
}

// bias gives every allowed token the maximum positive bias.
func bias(ids []int) map[int]int {
	out := make(map[int]int, len(ids))
	for _, id := range ids {
		out[id] = allowBias
	}
	return out
}

// decodeIndices maps whitespace-separated index labels back to candidates.
func decodeIndices(m domain.IndexMap, content string) (picked, dropped []string) {
	seen := make(map[string]struct{})
	for _, piece := range strings.Fields(content) {
		piece = strings.TrimSuffix(piece, stopMarker)
		if piece == "" {
			continue
		}
		item, ok := m.Lookup(piece)
		if !ok {
			dropped = append(dropped, piece)
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		picked = append(picked, item)
	}
	return picked, dropped
}
