package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/cache"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/observability"
	"github.com/boddenberg/datapay-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newResults(t *testing.T, backend *fakeBackend) (*service.Results, *observability.Metrics) {
	t.Helper()
	c := cache.New[*domain.ValuationResult](time.Minute)
	t.Cleanup(c.Close)
	metrics := observability.NewMetrics()
	return service.NewResults(backend, c, metrics, zap.NewNop()), metrics
}

func TestResults_CachesFinishedCalculations(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.getResult = &domain.ValuationResult{Total: 99, Insights: []string{}}
	svc, metrics := newResults(t, backend)

	first, err := svc.Get(ctx, "calc-1")
	require.NoError(t, err)
	second, err := svc.Get(ctx, "calc-1")
	require.NoError(t, err)

	assert.Equal(t, 99.0, first.Total)
	assert.Equal(t, first, second)
	_, _, _, gets := backend.counts()
	assert.Equal(t, 1, gets)
	assert.Equal(t, 0.5, metrics.GetValuationSnapshot().CacheHitRate)
}

func TestResults_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	svc, _ := newResults(t, backend)

	_, err := svc.Get(ctx, "missing")
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)

	_, err = svc.Get(ctx, "missing")
	require.Error(t, err)
	_, _, _, gets := backend.counts()
	assert.Equal(t, 2, gets)
}

func TestResults_EmptyID(t *testing.T) {
	svc, _ := newResults(t, newFakeBackend())

	_, err := svc.Get(context.Background(), "")
	var validation *domain.ErrValidation
	assert.ErrorAs(t, err, &validation)
}
