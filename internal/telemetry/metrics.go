// Package telemetry records probe and verdict metrics on the global
// OpenTelemetry meter provider. Without a configured provider the
// instruments are no-ops.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "mailcheck"

const (
	KindRemote = "remote"
	KindLocal  = "local"
)

var (
	metricsOnce           sync.Once
	metricsInitErr        error
	probeExecutionCounter metric.Int64Counter
	probeTimeoutCounter   metric.Int64Counter
	probeLatencyHistogram metric.Float64Histogram
	verdictCounter        metric.Int64Counter
)

// ProbeMetrics describes one finished probe or check.
type ProbeMetrics struct {
	Kind     string
	Source   string
	Outcome  string
	Duration time.Duration
	TimedOut bool
}

func RecordProbe(ctx context.Context, m ProbeMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("probe.kind", m.Kind),
		attribute.String("probe.source", m.Source),
		attribute.String("probe.outcome", m.Outcome),
	)

	probeExecutionCounter.Add(ctx, 1, attrs)

	if m.Duration > 0 {
		probeLatencyHistogram.Record(ctx, float64(m.Duration)/float64(time.Millisecond), attrs)
	}

	if m.TimedOut {
		probeTimeoutCounter.Add(ctx, 1, attrs)
	}
}

// RecordVerdict counts final verdicts by the mechanism that produced them.
func RecordVerdict(ctx context.Context, verdict, source string) {
	if err := ensureMetrics(); err != nil {
		return
	}

	verdictCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("verdict", verdict),
		attribute.String("verdict.source", source),
	))
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(meterName)

		probeExecutionCounter, metricsInitErr = meter.Int64Counter(
			"mailcheck.probe.executions_total",
			metric.WithDescription("Probe executions partitioned by kind and outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		probeTimeoutCounter, metricsInitErr = meter.Int64Counter(
			"mailcheck.probe.timeouts_total",
			metric.WithDescription("Probes abandoned after their deadline"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		probeLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"mailcheck.probe.duration_ms",
			metric.WithDescription("Observed probe latency"),
			metric.WithUnit("ms"),
		)
		if metricsInitErr != nil {
			return
		}

		verdictCounter, metricsInitErr = meter.Int64Counter(
			"mailcheck.verdicts_total",
			metric.WithDescription("Final verdicts partitioned by verdict and source"),
			metric.WithUnit("{count}"),
		)
	})

	return metricsInitErr
}

// ResetMetricsForTest drops cached instruments so a test can bind them to a
// fresh MeterProvider.
func ResetMetricsForTest() {
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	probeExecutionCounter = nil
	probeTimeoutCounter = nil
	probeLatencyHistogram = nil
	verdictCounter = nil
}
