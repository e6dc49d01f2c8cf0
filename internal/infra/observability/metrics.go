package observability

import (
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	backendErrors   *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	calculations    *prometheus.CounterVec
	syncErrors      prometheus.Counter
	wizardsCreated  prometheus.Counter
	wizardsActive   prometheus.Gauge
	valuationTotal  prometheus.Histogram
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datapay_operation_duration_seconds",
				Help:    "Duration of backend and valuation operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datapay_backend_errors_total",
				Help: "Total errors from the calculation backend by operation.",
			},
			[]string{"operation"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datapay_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datapay_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		calculations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datapay_calculations_total",
				Help: "Final calculations by source and status.",
			},
			[]string{"source", "status"},
		),
		syncErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "datapay_background_sync_errors_total",
				Help: "Profile pushes to the backend that failed.",
			},
		),
		wizardsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "datapay_wizards_created_total",
				Help: "Wizards opened by browsers.",
			},
		),
		wizardsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "datapay_wizards_active",
				Help: "Wizards currently held in memory.",
			},
		),
		valuationTotal: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "datapay_valuation_total_brl",
				Help:    "Distribution of computed data values in reais.",
				Buckets: []float64{50, 100, 200, 300, 400, 500, 750, 1000},
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrBackendError increments the backend error counter.
func (m *Metrics) IncrBackendError(operation string) {
	m.backendErrors.WithLabelValues(operation).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordCalculation counts a final calculation and, on success, observes
// its total.
func (m *Metrics) RecordCalculation(source domain.ResultSource, result *domain.ValuationResult, err error) {
	if err != nil {
		m.calculations.WithLabelValues(string(source), "error").Inc()
		return
	}
	m.calculations.WithLabelValues(string(source), "success").Inc()
	if result != nil {
		m.valuationTotal.Observe(result.Total)
	}
}

// IncrSyncError counts a failed background profile push.
func (m *Metrics) IncrSyncError() {
	m.syncErrors.Inc()
}

// WizardOpened counts a new wizard.
func (m *Metrics) WizardOpened() {
	m.wizardsCreated.Inc()
}

// SetActiveWizards sets the in-memory wizard gauge.
func (m *Metrics) SetActiveWizards(n int) {
	m.wizardsActive.Set(float64(n))
}

// GetValuationSnapshot returns a snapshot of calculator metrics suitable for
// the GET /v1/metrics/valuation endpoint.
func (m *Metrics) GetValuationSnapshot() *domain.ValuationMetrics {
	backendOK := getCounterValue(m.calculations, string(domain.SourceBackend), "success")
	localOK := getCounterValue(m.calculations, string(domain.SourceLocal), "success")
	failed := getCounterValue(m.calculations, string(domain.SourceBackend), "error") +
		getCounterValue(m.calculations, string(domain.SourceLocal), "error")
	hits := getCounterValue(m.cacheHits, "results")
	misses := getCounterValue(m.cacheMisses, "results")

	total := backendOK + localOK + failed
	fallbackRate := float64(0)
	errorRate := float64(0)
	cacheHitRate := float64(0)
	if total > 0 {
		fallbackRate = localOK / total
		errorRate = failed / total
	}
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.ValuationMetrics{
		WizardsCreated:       int64(readMetric(m.wizardsCreated)),
		ActiveWizards:        int64(readMetric(m.wizardsActive)),
		BackendCalculations:  int64(backendOK),
		LocalCalculations:    int64(localOK),
		FailedCalculations:   int64(failed),
		BackgroundSyncErrors: int64(readMetric(m.syncErrors)),
		FallbackRate:         fallbackRate,
		ErrorRate:            errorRate,
		CacheHitRate:         cacheHitRate,
		Period:               "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	return readMetric(cv.WithLabelValues(labels...))
}

func readMetric(c prometheus.Metric) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	switch {
	case m.Counter != nil && m.Counter.Value != nil:
		return *m.Counter.Value
	case m.Gauge != nil && m.Gauge.Value != nil:
		return *m.Gauge.Value
	}
	return 0
}
