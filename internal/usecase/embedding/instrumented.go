// Package embedding guards embedding calls with the token budget and per-request usage.
package embedding

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// DefaultChunkSize is the largest number of texts sent in one provider request.
const DefaultChunkSize = 256

// BudgetChecker enforces a token budget.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}

// InstrumentedEmbedder charges every embedding call to the budget and to the request usage.
// Provider metrics are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	budget BudgetChecker
	chunk  int
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. budget may be nil.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:  inner,
		budget: budget,
		chunk:  DefaultChunkSize,
		logger: logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// WithChunkSize overrides DefaultChunkSize. Values below one are ignored.
func (p *InstrumentedEmbedder) WithChunkSize(n int) *InstrumentedEmbedder {
	if n > 0 {
		p.chunk = n
	}
	return p
}

// Embed implements domain.Embedder.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := p.admit(ctx, 1); err != nil {
		return domain.EmbeddingResult{}, err
	}

	start := time.Now()
	res, err := p.inner.Embed(ctx, text)
	if err != nil {
		p.logger.Error("Embedding failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	p.charge(ctx, res.TotalTokens)
	return res, nil
}

// BatchEmbed implements domain.BatchEmbedder. Texts are sent in chunks and the budget
// is checked again before each one, so a long batch stops once the budget runs out.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var out domain.BatchEmbeddingResult
	if len(texts) == 0 {
		return out, nil
	}

	start := time.Now()
	offset := 0
	for chunk := range slices.Chunk(texts, p.chunk) {
		if err := p.admit(ctx, len(texts)-offset); err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		res, err := domain.EmbedMany(ctx, p.inner, chunk)
		if err != nil {
			p.logger.Error("Batch embedding failed",
				zap.Int("offset", offset),
				zap.Int("chunk", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed at %d: %w", offset, err)
		}
		p.charge(ctx, res.TotalTokens)
		out.Merge(res)
		offset += len(chunk)
	}

	p.logger.Debug("Batch embedded",
		zap.Int("texts", len(texts)),
		zap.Int("total_tokens", out.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// admit fails with domain.ErrBudgetExceeded when the budget rejects further calls.
func (p *InstrumentedEmbedder) admit(ctx context.Context, pending int) error {
	if p.budget == nil {
		return nil
	}
	if err := p.budget.Check(ctx); err != nil {
		p.logger.Warn("Embedding budget exhausted", zap.Int("pending_texts", pending), zap.Error(err))
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func (p *InstrumentedEmbedder) charge(ctx context.Context, tokens int) {
	domain.UsageFromContext(ctx).AddEmbedding(tokens)
	if p.budget != nil && tokens > 0 {
		p.budget.Record(int64(tokens))
	}
}
