package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/observability"
	"github.com/boddenberg/datapay-bfa-go/internal/port"
	"github.com/boddenberg/datapay-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("handler")

// HealthCheck checks one dependency for /healthz and /readyz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options tune the router.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	HealthChecks   []HealthCheck
}

// NewRouter creates the HTTP router with all routes and middleware.
// A nil registry or results service answers its routes with 503.
func NewRouter(
	wizards *service.Registry,
	results *service.Results,
	engine port.Valuator,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts.HealthChecks))
	r.Get("/readyz", readyzHandler(opts.HealthChecks, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 1
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 10
	}
	limiter := NewIPRateLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst, logger)

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Catálogo & estimativa
		// =============================================
		r.Get("/options", optionsHandler())
		r.Get("/metrics/valuation", valuationMetricsHandler(metrics))
		r.With(limiter.RateLimit).Post("/valuation/estimate", estimateHandler(engine, logger))

		// =============================================
		// 2. Resultados
		// GET /v1/calculations/{calculationId}
		// =============================================
		if results != nil {
			r.Get("/calculations/{calculationId}", getCalculationHandler(results, logger))
		} else {
			r.Get("/calculations/{calculationId}", unavailableHandler("result lookup"))
		}

		// =============================================
		// 3. Assistente
		// =============================================
		r.Route("/wizards", func(r chi.Router) {
			if wizards == nil {
				r.Handle("/*", unavailableHandler("wizard"))
				r.Handle("/", unavailableHandler("wizard"))
				return
			}
			r.With(limiter.RateLimit).Post("/", createWizardHandler(wizards, logger))

			r.Route("/current", func(r chi.Router) {
				r.Use(WizardTokenMiddleware(wizards, logger))
				r.Get("/", getWizardHandler())
				r.Patch("/sections/{section}", patchSectionHandler(logger))
				r.Post("/start", wizardActionHandler("start", logger, func(ctx context.Context, w *service.Wizard) error { return w.Start(ctx) }))
				r.Post("/next", wizardActionHandler("next", logger, func(ctx context.Context, w *service.Wizard) error { return w.Next(ctx) }))
				r.Post("/prev", wizardActionHandler("prev", logger, func(_ context.Context, w *service.Wizard) error { return w.Prev() }))
				r.Post("/restart", wizardActionHandler("restart", logger, func(ctx context.Context, w *service.Wizard) error { return w.Restart(ctx) }))
				r.Post("/goto/{step}", gotoHandler(logger))
			})
		})
	})

	return r
}

func unavailableHandler(what string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusServiceUnavailable, what+" service unavailable")
	}
}

// ============================================================
// Health
// ============================================================

func runHealthChecks(ctx context.Context, checks []HealthCheck) ([]domain.ServiceHealth, string) {
	now := time.Now().Format(time.RFC3339)
	services := []domain.ServiceHealth{
		{Name: "bfa-api", Status: "healthy", LastChecked: now},
	}

	overall := "healthy"
	for _, p := range checks {
		start := time.Now()
		err := p.Check(ctx)
		s := domain.ServiceHealth{
			Name:        p.Name,
			Status:      "healthy",
			LatencyMs:   time.Since(start).Milliseconds(),
			LastChecked: now,
		}
		if err != nil {
			s.Status = "degraded"
			s.Detail = err.Error()
			overall = "degraded"
		}
		services = append(services, s)
	}
	return services, overall
}

func healthzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services, overall := runHealthChecks(ctx, checks)
		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler(checks []HealthCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services, overall := runHealthChecks(ctx, checks)
		if overall != "healthy" {
			logger.Warn("not ready", zap.Any("services", services))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "services": services})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
