package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/catalog"
	"github.com/kailas-cloud/statutefinder/internal/config"
	"github.com/kailas-cloud/statutefinder/internal/db"
	dbBadger "github.com/kailas-cloud/statutefinder/internal/db/badger"
	dbRedis "github.com/kailas-cloud/statutefinder/internal/db/redis"
	"github.com/kailas-cloud/statutefinder/internal/document"
	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/metrics"
	budgetrepo "github.com/kailas-cloud/statutefinder/internal/repository/budget"
	"github.com/kailas-cloud/statutefinder/internal/repository/embcache"
	"github.com/kailas-cloud/statutefinder/internal/repository/embtable"
	"github.com/kailas-cloud/statutefinder/internal/tokenizer"
	openaiProvider "github.com/kailas-cloud/statutefinder/internal/transport/openai"
	"github.com/kailas-cloud/statutefinder/internal/usecase/batch"
	budgetuc "github.com/kailas-cloud/statutefinder/internal/usecase/budget"
	completionuc "github.com/kailas-cloud/statutefinder/internal/usecase/completion"
	embeddinguc "github.com/kailas-cloud/statutefinder/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/statutefinder/internal/usecase/health"
	"github.com/kailas-cloud/statutefinder/internal/usecase/narrowing"
	"github.com/kailas-cloud/statutefinder/internal/usecase/ranker"
	"github.com/kailas-cloud/statutefinder/internal/usecase/selector"
	"github.com/kailas-cloud/statutefinder/internal/usecase/session"
	usageuc "github.com/kailas-cloud/statutefinder/internal/usecase/usage"
)

// statuteCorpusID names the embedding table of catalog statute names.
const statuteCorpusID = "statute_names"

const providerName = "openai"

// app is the composition root shared by every command.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   db.Store
	catalog *catalog.Catalog

	completer *openaiProvider.Completer
	embedder  *openaiProvider.Embedder

	selector  *selector.Service
	ranker    *ranker.Service
	narrowing *narrowing.Service
	sessions  *session.Manager
	usage     *usageuc.Service
	health    *healthuc.Service

	options narrowing.Options
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSelectionMetrics()

	if cfg.Database.Enabled() {
		store, err := openStore(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	cat, err := catalog.LoadLatest(cfg.Catalog.DataDir, catalog.Options{IncludeRepealed: cfg.Catalog.IncludeRepealed})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	a.catalog = cat
	currency, _ := cat.CurrencyDate()
	logger.Info("Catalog loaded",
		zap.String("path", cat.Path()),
		zap.Int("statutes", cat.Len()),
		zap.Time("currency_date", currency),
	)

	completionBudget := a.newTracker(ctx, budgetuc.ScopeCompletion, cfg.Budget.Completion)
	embeddingBudget := a.newTracker(ctx, budgetuc.ScopeEmbedding, cfg.Budget.Embedding)

	a.completer = openaiProvider.NewCompleter(&openaiProvider.Config{
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		Provider: providerName,
		Retry:    openaiProvider.RetryPolicyByName(cfg.LLM.Retry),
		Logger:   logger,
	})
	completer := completionuc.NewInstrumentedCompleter(a.completer, completionBudget, logger)

	embedder := a.buildEmbedder(embeddingBudget)

	toks, err := tokenizer.NewRegistry(cfg.LLM.Model)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create tokenizer: %w", err)
	}

	a.selector = selector.New(completer, toks.Default(), selector.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Tokenizers:  func(model string) (selector.Tokenizer, error) { return toks.For(model) },
	}, logger)
	a.ranker = ranker.New(embedder, embtable.New(cfg.Embedding.TableDir, logger), logger).
		WithBuildBatchSize(cfg.Embedding.BatchSize)
	parts := batch.New(toks.Default()).
		WithModelCounters(func(model string) (batch.TokenCounter, error) { return toks.For(model) })
	a.narrowing = narrowing.New(a.selector, parts, a.ranker, logger)

	temperature := cfg.LLM.Temperature
	a.options = narrowing.Options{
		Model:               cfg.LLM.Model,
		Temperature:         &temperature,
		InitialResultsRatio: cfg.Narrowing.InitialResultsRatio,
		FinalResultsRatio:   cfg.Narrowing.FinalResultsRatio,
		BatchTokenSize:      cfg.Narrowing.BatchTokenSize,
		BatchOverlap:        cfg.Narrowing.BatchOverlap,
		RandomizeOrder:      *cfg.Narrowing.RandomizeOrder,
		Concurrency:         cfg.Narrowing.Concurrency,
		PrefilterTopN:       cfg.Narrowing.PrefilterTopN,
		CorpusID:            statuteCorpusID,
	}

	a.sessions = session.NewManager(a.ranker, a.narrowing, a.selector, cat, session.Config{
		CorpusID:          statuteCorpusID,
		OptionsToRetrieve: cfg.Session.OptionsToRetrieve,
		OptionsToShow:     cfg.Session.OptionsToShow,
		TTL:               time.Duration(cfg.Session.TTLMinutes) * time.Minute,
		Narrowing:         a.options,
	}, logger).WithSections(document.NewLibrary(cfg.Catalog.ActsDir, func(name, citation string) (string, bool) {
		row, ok := cat.Find(name, citation)
		return row.ActID, ok
	}), a.narrowing)

	a.usage = usageuc.New(completionBudget, embeddingBudget)

	deps := healthuc.Deps{
		Completion: a.completer,
		Embedding:  a.embedder,
		Catalog:    cat,
	}
	if a.store != nil {
		deps.DB = a.store
	}
	a.health = healthuc.New(deps, logger)

	return a, nil
}

// newTracker always returns a tracker so usage is reported even without limits.
func (a *app) newTracker(ctx context.Context, scope string, cfg config.BudgetConfig) *budgetuc.Tracker {
	action := budgetuc.ActionWarn
	if cfg.Action == "reject" {
		action = budgetuc.ActionReject
	}
	t := budgetuc.NewTracker(scope, cfg.DailyTokenLimit, cfg.MonthlyTokenLimit, action, a.logger)
	if a.store != nil {
		t.WithStore(ctx, budgetrepo.New(a.store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
	}
	return t
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func (a *app) buildEmbedder(budget embeddinguc.BudgetChecker) domain.Embedder {
	a.embedder = openaiProvider.NewEmbedder(&openaiProvider.Config{
		APIKey:     a.cfg.Embedding.APIKey,
		BaseURL:    a.cfg.Embedding.BaseURL,
		Model:      a.cfg.Embedding.Model,
		Dimensions: a.cfg.Embedding.Dimensions,
		Provider:   providerName,
		Retry:      openaiProvider.SlowRetryPolicy(),
		Logger:     a.logger,
	})

	var embedder domain.Embedder = a.embedder
	if a.cfg.Embedding.Cache && a.store != nil {
		embedder = embcache.New(embedder, a.store, a.cfg.Embedding.Model, metrics.EmbeddingCacheTotal, a.logger).
			WithTTL(time.Duration(a.cfg.Embedding.CacheTTLHours) * time.Hour)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, providerName, a.cfg.Embedding.Model, budget, a.logger)
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// openStore opens the embedded store when a path is configured and Redis otherwise.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (db.Store, error) {
	if cfg.Path != "" {
		store, err := dbBadger.Open(dbBadger.Config{Dir: cfg.Path, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("open embedded database: %w", err)
		}
		logger.Info("Opened embedded database", zap.String("path", cfg.Path))
		return store, nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	timeout := time.Duration(cfg.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Addrs))
	return store, nil
}
