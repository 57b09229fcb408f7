package health

import "context"

// Status is the overall verdict.
type Status string

const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "error"
)

// CheckResult is one component's verdict.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report is the overall status plus one result per probed component.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an LLM or embedding provider.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogSizer reports how many statutes are loaded.
type CatalogSizer interface {
	Len() int
}
