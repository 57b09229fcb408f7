package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultProbeTimeout bounds each component probe.
const DefaultProbeTimeout = 5 * time.Second

var errEmptyCatalog = errors.New("catalog has no statutes")

// Deps lists the components to probe. Nil fields are skipped.
type Deps struct {
	DB         DBPinger
	Completion ProviderChecker
	Embedding  ProviderChecker
	Catalog    CatalogSizer
}

type probe struct {
	name string
	run  func(ctx context.Context) error
}

// Service probes every configured component concurrently.
type Service struct {
	probes  []probe
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Service.
func New(deps Deps, logger *zap.Logger) *Service {
	s := &Service{timeout: DefaultProbeTimeout, logger: logger}
	if deps.DB != nil {
		s.probes = append(s.probes, probe{"database", deps.DB.Ping})
	}
	if deps.Completion != nil {
		s.probes = append(s.probes, probe{"completion", deps.Completion.HealthCheck})
	}
	if deps.Embedding != nil {
		s.probes = append(s.probes, probe{"embedding", deps.Embedding.HealthCheck})
	}
	if deps.Catalog != nil {
		s.probes = append(s.probes, probe{"catalog", func(context.Context) error {
			if deps.Catalog.Len() == 0 {
				return errEmptyCatalog
			}
			return nil
		}})
	}
	return s
}

// WithTimeout overrides DefaultProbeTimeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs all probes and folds them into one status.
// Unhealthy means every probe failed; a partial failure is Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.probes))
	var mu sync.Mutex
	var g errgroup.Group

	for _, p := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := p.run(pctx); err != nil {
				res = CheckError
				s.logger.Warn("Health probe failed", zap.String("component", p.name), zap.Error(err))
			}
			mu.Lock()
			checks[p.name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: fold(checks), Checks: checks}
}

func fold(checks map[string]CheckResult) Status {
	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}
	switch {
	case failed == 0:
		return Healthy
	case failed == len(checks):
		return Unhealthy
	default:
		return Degraded
	}
}
