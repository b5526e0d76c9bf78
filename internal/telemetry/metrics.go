package telemetry

import (
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/cvca"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Issuance metrics
	CertificatesIssuedTotal metric.Int64Counter
	IssueErrorsTotal        metric.Int64Counter
	SignDuration            metric.Float64Histogram
	PayloadBytes            metric.Int64Histogram

	// Key source metrics
	KeyLoadRetriesTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.CertificatesIssuedTotal, _ = meter.Int64Counter(
		"cvca.certificates.issued.total",
		metric.WithDescription("Total number of certificates issued"),
		metric.WithUnit("{certificate}"),
	)

	m.IssueErrorsTotal, _ = meter.Int64Counter(
		"cvca.certificates.issue.errors.total",
		metric.WithDescription("Total number of failed issuance attempts"),
		metric.WithUnit("{error}"),
	)

	m.SignDuration, _ = meter.Float64Histogram(
		"cvca.signer.duration",
		metric.WithDescription("Duration of message recovery signing"),
		metric.WithUnit("ms"),
	)

	m.PayloadBytes, _ = meter.Int64Histogram(
		"cvca.certificates.payload.size",
		metric.WithDescription("Size of the to-be-signed payload"),
		metric.WithUnit("By"),
	)

	m.KeyLoadRetriesTotal, _ = meter.Int64Counter(
		"cvca.keys.load.retries.total",
		metric.WithDescription("Total number of retried issuer key loads"),
		metric.WithUnit("{retry}"),
	)

	return m
}

// Milliseconds converts d to fractional milliseconds for the duration histograms.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
