package statutefinder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "statutefinder"
	metricsSubsystem = "sdk"
)

type sdkMetrics struct {
	calls    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	llmCalls *prometheus.CounterVec
	tokens   *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "operations_total",
			Help: "SDK calls by operation and outcome.",
		}, []string{"operation", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name:    "operation_duration_seconds",
			Help:    "SDK call duration in seconds, server-side narrowing included.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"operation"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "llm_calls_total",
			Help: "Model calls the server reported making on the SDK's behalf.",
		}, []string{"operation"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "tokens_total",
			Help: "Provider tokens the server reported spending on the SDK's behalf.",
		}, []string{"operation", "kind"}),
	}
	if err := errors.Join(
		register(reg, &m.calls),
		register(reg, &m.latency),
		register(reg, &m.llmCalls),
		register(reg, &m.tokens),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg. When an equal collector is already there, c is pointed at it
// so several clients can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("statutefinder: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("statutefinder: metric registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and meters SDK calls. Both sinks are optional.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// begin starts timing op. The returned func records the outcome and the usage
// the server reported.
func (o *observer) begin(op string) func(Usage, error) {
	start := time.Now()
	return func(u Usage, err error) {
		elapsed := time.Since(start)
		status := outcome(err)
		o.meter(op, status, elapsed, u)
		o.log(op, status, elapsed, u, err)
	}
}

func (o *observer) meter(op, status string, elapsed time.Duration, u Usage) {
	if o.metrics == nil {
		return
	}
	o.metrics.calls.WithLabelValues(op, status).Inc()
	o.metrics.latency.WithLabelValues(op).Observe(elapsed.Seconds())
	if u.Calls > 0 {
		o.metrics.llmCalls.WithLabelValues(op).Add(float64(u.Calls))
	}
	for kind, n := range map[string]int{
		"prompt":     u.PromptTokens,
		"completion": u.CompletionTokens,
		"embedding":  u.EmbeddingTokens,
	} {
		if n > 0 {
			o.metrics.tokens.WithLabelValues(op, kind).Add(float64(n))
		}
	}
}

func (o *observer) log(op, status string, elapsed time.Duration, u Usage, err error) {
	if o.logger == nil {
		return
	}
	if err == nil {
		o.logger.Debug("call completed", "op", op, "duration", elapsed, "llm_calls", u.Calls)
		return
	}
	attrs := []any{"op", op, "status", status, "duration", elapsed, "error", err}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RequestID != "" {
		attrs = append(attrs, "request_id", apiErr.RequestID)
	}
	o.logger.Warn("call failed", attrs...)
}

// outcome is the status label: "ok", the API error code, or a transport class.
func outcome(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr) && apiErr.Code != "":
		return apiErr.Code
	case apiErr != nil:
		return "http_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transport_error"
	}
}
