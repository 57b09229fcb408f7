package openai

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/metrics"
)

// Completer is a chat completion provider using the OpenAI-compatible API.
type Completer struct {
	client   *openai.Client
	model    string
	user     string
	provider string
	retry    retrier
	logger   *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat completion provider.
func NewCompleter(cfg *Config) *Completer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Completer{
		client:   newClient(cfg),
		model:    cfg.Model,
		user:     cfg.User,
		provider: cfg.Provider,
		logger:   logger,
	}
	c.retry = newRetrier(cfg, func() {
		metrics.CompletionRetriesTotal.WithLabelValues(c.provider, c.model).Inc()
	})
	return c
}

// Complete implements domain.Completer. Transient failures are retried per the
// configured policy; exhaustion returns an error matching domain.ErrProviderUnavailable.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	creq := c.toRequest(model, req)

	var resp openai.ChatCompletionResponse
	start := time.Now()
	err := c.retry.do(ctx, "complete", func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, creq)
		return callErr //nolint:wrapcheck // classified by the retrier
	})
	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.provider, model, "error").Inc()
		return domain.CompletionResponse{}, err
	}
	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(c.provider, model, "error").Inc()
		return domain.CompletionResponse{}, fmt.Errorf("empty completion response: %w", domain.ErrProviderRejected)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.provider, model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(c.provider, model).Observe(duration.Seconds())
	metrics.CompletionTokensTotal.WithLabelValues(c.provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.CompletionTokensTotal.WithLabelValues(c.provider, model, "completion").Add(float64(resp.Usage.CompletionTokens))

	choice := resp.Choices[0]
	c.logger.Debug("Completion",
		zap.String("model", model),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Int("bias_tokens", len(req.LogitBias)),
		zap.String("content", choice.Message.Content),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", duration),
	)
	return domain.CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: domain.CompletionUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *Completer) toRequest(model string, req domain.CompletionRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	// Zero is dropped by omitempty and the provider would fall back to 1.
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	out := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
		User:        c.user,
	}
	if len(req.LogitBias) > 0 {
		out.LogitBias = make(map[string]int, len(req.LogitBias))
		for id, bias := range req.LogitBias {
			out.LogitBias[strconv.Itoa(id)] = bias
		}
	}
	return out
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, c.client)
}
