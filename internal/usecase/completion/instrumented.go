package completion

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// BudgetChecker enforces a token budget.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}

// InstrumentedCompleter wraps a Completer with budget enforcement and per-request usage.
// Request metrics live in transport/openai.
type InstrumentedCompleter struct {
	inner  domain.Completer
	budget BudgetChecker
	logger *zap.Logger
}

// NewInstrumentedCompleter wraps a completer. budget may be nil.
func NewInstrumentedCompleter(inner domain.Completer, budget BudgetChecker, logger *zap.Logger) *InstrumentedCompleter {
	return &InstrumentedCompleter{inner: inner, budget: budget, logger: logger}
}

// Complete checks the budget, delegates and records the tokens the provider reported.
func (c *InstrumentedCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	if c.budget != nil {
		if err := c.budget.Check(ctx); err != nil {
			c.logger.Error("Budget exceeded", zap.String("model", req.Model), zap.Error(err))
			return domain.CompletionResponse{}, fmt.Errorf("budget check: %w", err)
		}
	}

	resp, err := c.inner.Complete(ctx, req)
	if err != nil {
		return domain.CompletionResponse{}, err
	}

	domain.UsageFromContext(ctx).AddCompletion(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	if c.budget != nil {
		c.budget.Record(int64(resp.Usage.TotalTokens))
	}
	return resp, nil
}
