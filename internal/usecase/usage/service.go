// Package usage reports token consumption per budget scope.
package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/statutefinder/internal/domain/usage"
)

// Service builds usage reports from the budget trackers.
type Service struct {
	readers []BudgetReader
	now     func() time.Time
}

// New creates a Service over one reader per scope. Nil readers are skipped.
func New(readers ...BudgetReader) *Service {
	s := &Service{now: time.Now}
	for _, r := range readers {
		if r != nil {
			s.readers = append(s.readers, r)
		}
	}
	return s
}

// Scopes lists the tracked scopes in registration order.
func (s *Service) Scopes() []string {
	out := make([]string, len(s.readers))
	for i, r := range s.readers {
		out[i] = r.Scope()
	}
	return out
}

// GetReports builds one report per tracked scope.
func (s *Service) GetReports(_ context.Context, period domusage.Period) []domusage.Report {
	at := s.now()
	out := make([]domusage.Report, len(s.readers))
	for i, r := range s.readers {
		out[i] = report(r, period, at)
	}
	return out
}

// GetReport builds the report for one scope. ok is false for an unknown scope.
func (s *Service) GetReport(_ context.Context, scope string, period domusage.Period) (domusage.Report, bool) {
	for _, r := range s.readers {
		if r.Scope() == scope {
			return report(r, period, s.now()), true
		}
	}
	return domusage.Report{}, false
}

// report reads the daily counters for PeriodDay and the monthly ones otherwise.
func report(r BudgetReader, period domusage.Period, at time.Time) domusage.Report {
	if period == domusage.PeriodDay {
		return domusage.NewReport(r.Scope(), period, at,
			domusage.Counts{Requests: r.DailyRequests(), Tokens: r.DailyUsed()},
			domusage.Budget{Limit: r.DailyLimit(), Remaining: r.RemainingDaily()},
		)
	}
	return domusage.NewReport(r.Scope(), period, at,
		domusage.Counts{Requests: r.MonthlyRequests(), Tokens: r.MonthlyUsed()},
		domusage.Budget{Limit: r.MonthlyLimit(), Remaining: r.RemainingMonthly()},
	)
}
