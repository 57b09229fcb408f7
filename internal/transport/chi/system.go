package chi

import (
	"net/http"

	domusage "github.com/kailas-cloud/statutefinder/internal/domain/usage"
	healthuc "github.com/kailas-cloud/statutefinder/internal/usecase/health"
	"github.com/kailas-cloud/statutefinder/internal/version"
)

// GetUsage handles GET /v1/usage?period=&scope=.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Usage == nil {
		notImplemented(w, "usage")
		return
	}

	period := domusage.PeriodMonth
	if raw := r.URL.Query().Get("period"); raw != "" {
		p, ok := domusage.ParsePeriod(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "period must be day, month or total")
			return
		}
		period = p
	}

	var reports []domusage.Report
	if scope := r.URL.Query().Get("scope"); scope != "" {
		rep, ok := s.deps.Usage.GetReport(r.Context(), scope, period)
		if !ok {
			writeError(w, http.StatusNotFound, codeValidationFailed, "unknown scope")
			return
		}
		reports = []domusage.Report{rep}
	} else {
		reports = s.deps.Usage.GetReports(r.Context(), period)
	}

	items := make([]usageReport, len(reports))
	for i := range reports {
		items[i] = usageToResponse(&reports[i])
	}
	writeJSON(w, http.StatusOK, usageResponse{Items: items})
}

func usageToResponse(report *domusage.Report) usageReport {
	counts, budget := report.Counts(), report.Budget()
	resp := usageReport{
		Scope:           report.Scope(),
		Period:          string(report.Period()),
		Requests:        counts.Requests,
		Tokens:          counts.Tokens,
		TokensLimit:     budget.Limit,
		TokensRemaining: budget.Remaining,
		IsExhausted:     budget.Exhausted(),
	}
	if start, end := report.Window(); !start.IsZero() {
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if at := report.ResetsAt(); !at.IsZero() && budget.Limit > 0 {
		resp.ResetsAt = &at
	}
	return resp
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}
