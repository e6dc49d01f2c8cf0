package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/observability"
	"github.com/boddenberg/datapay-bfa-go/internal/port"
	"github.com/boddenberg/datapay-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// GET /v1/options
// ============================================================

func optionsHandler() http.HandlerFunc {
	catalog := domain.OptionCatalog()
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, catalog)
	}
}

// ============================================================
// POST /v1/valuation/estimate
// ============================================================

func estimateHandler(engine port.Valuator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/valuation/estimate")
		defer span.End()

		if engine == nil {
			writeError(w, http.StatusServiceUnavailable, "valuation engine unavailable")
			return
		}

		var profile domain.Profile
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&profile); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validateStruct(profile); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result := engine.Estimate(profile)
		span.SetAttributes(attribute.Float64("valuation.total", result.Total))
		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// GET /v1/calculations/{calculationId}
// ============================================================

func getCalculationHandler(results *service.Results, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/calculations/{calculationId}")
		defer span.End()

		calculationID := chi.URLParam(r, "calculationId")
		span.SetAttributes(attribute.String("calculation.id", calculationID))

		result, err := results.Get(ctx, calculationID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// GET /v1/metrics/valuation
// ============================================================

func valuationMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetValuationSnapshot())
	}
}
