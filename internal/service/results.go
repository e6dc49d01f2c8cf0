package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/observability"
	"github.com/boddenberg/datapay-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const resultsCache = "results"

// Results looks up finished calculations. They never change, so answers
// are cached by calculation id.
type Results struct {
	backend port.CalculationBackend
	cache   port.Cache[*domain.ValuationResult]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewResults creates the result lookup service.
func NewResults(
	backend port.CalculationBackend,
	cache port.Cache[*domain.ValuationResult],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Results {
	return &Results{backend: backend, cache: cache, metrics: metrics, logger: logger}
}

// Get returns the result of calculationID.
func (s *Results) Get(ctx context.Context, calculationID string) (*domain.ValuationResult, error) {
	ctx, span := tracer.Start(ctx, "Results.Get")
	defer span.End()
	span.SetAttributes(attribute.String("calculation.id", calculationID))

	if calculationID == "" {
		return nil, &domain.ErrValidation{Field: "calculationId", Message: "obrigatório"}
	}

	if cached, ok := s.cache.Get(calculationID); ok {
		s.metrics.IncrCacheHit(resultsCache)
		return cached.Clone(), nil
	}
	s.metrics.IncrCacheMiss(resultsCache)

	start := time.Now()
	result, err := s.backend.Get(ctx, calculationID)
	s.metrics.RecordRequestDuration("get", time.Since(start))
	if err != nil {
		s.logger.Warn("result lookup failed", zap.String("calculation_id", calculationID), zap.Error(err))
		return nil, fmt.Errorf("get calculation: %w", err)
	}

	s.cache.Set(calculationID, result.Clone())
	return result, nil
}
