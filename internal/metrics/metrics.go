package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_provider_calls_total",
			Help: "Total number of outbound provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_provider_retries_total",
			Help: "Total number of retried provider attempts",
		},
		[]string{"provider", "reason"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enricher_provider_call_duration_seconds",
			Help:    "Duration of a provider call including retries",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"provider"},
	)

	EmailProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_email_probes_total",
			Help: "Total number of mailbox validation probes by verdict",
		},
		[]string{"verdict"},
	)

	CompaniesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_companies_processed_total",
			Help: "Total number of companies processed by the pipeline",
		},
		[]string{"result"},
	)

	RunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "enricher_runs_active",
			Help: "Number of enrichment runs currently executing",
		},
	)
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
