// Package openai talks to OpenAI-compatible chat completion and embedding endpoints.
package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds the provider settings shared by the completer and the embedder.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Retry      RetryPolicy
	Logger     *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

func newRetrier(cfg *Config, onRetry func()) retrier {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return retrier{
		policy: cfg.Retry,
		onRetry: func(attempt int, err error, next time.Duration) {
			if onRetry != nil {
				onRetry()
			}
			logger.Warn("Provider call failed, retrying",
				zap.String("provider", cfg.Provider),
				zap.Int("attempt", attempt),
				zap.Duration("next_delay", next),
				zap.Error(err),
			)
		},
	}
}

func healthCheck(ctx context.Context, client *openai.Client) error {
	if _, err := client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
