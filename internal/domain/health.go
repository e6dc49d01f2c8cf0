package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Detail      string `json:"detail,omitempty"`
}

// ValuationMetrics is returned by GET /v1/metrics/valuation.
type ValuationMetrics struct {
	WizardsCreated       int64   `json:"wizardsCreated"`
	ActiveWizards        int64   `json:"activeWizards"`
	BackendCalculations  int64   `json:"backendCalculations"`
	LocalCalculations    int64   `json:"localCalculations"`
	FailedCalculations   int64   `json:"failedCalculations"`
	BackgroundSyncErrors int64   `json:"backgroundSyncErrors"`
	FallbackRate         float64 `json:"fallbackRate"`
	ErrorRate            float64 `json:"errorRate"`
	CacheHitRate         float64 `json:"cacheHitRate"`
	Period               string  `json:"period"`
}
