package statutefinder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Usage returns token usage reports for the given period.
// An empty scope returns every scope the server tracks.
func (c *Client) Usage(ctx context.Context, period UsagePeriod, scope string) ([]UsageReport, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", string(period))
	}
	if scope != "" {
		q.Set("scope", scope)
	}
	var resp struct {
		Items []UsageReport `json:"items"`
	}
	_, err := c.do(ctx, call{op: "usage", method: http.MethodGet, path: "/v1/usage", query: q}, &resp)
	return resp.Items, err
}

// Health returns the service health. A degraded or unhealthy service answers
// 503 with a report body, which is returned without error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	done := c.obs.begin("health")
	hs, err := c.health(ctx)
	done(Usage{}, err)
	return hs, err
}

func (c *Client) health(ctx context.Context) (HealthStatus, error) {
	status, header, body, err := c.roundTrip(ctx, call{op: "health", method: http.MethodGet, path: "/health"})
	if err != nil {
		return HealthStatus{}, err
	}
	if status != http.StatusOK && status != http.StatusServiceUnavailable {
		return HealthStatus{}, apiError(status, header, body)
	}
	var hs HealthStatus
	if err := json.Unmarshal(body, &hs); err != nil {
		return HealthStatus{}, fmt.Errorf("statutefinder: decode health: %w", err)
	}
	return hs, nil
}
