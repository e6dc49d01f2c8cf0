package observability_test

import (
	"errors"
	"testing"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/observability"
)

func TestValuationSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.WizardOpened()
	m.WizardOpened()
	m.RecordCalculation(domain.SourceBackend, &domain.ValuationResult{Total: 336}, nil)
	m.RecordCalculation(domain.SourceLocal, &domain.ValuationResult{Total: 120}, nil)
	m.RecordCalculation(domain.SourceBackend, nil, errors.New("boom"))
	m.RecordCalculation(domain.SourceBackend, &domain.ValuationResult{Total: 90}, nil)
	m.IncrSyncError()
	m.SetActiveWizards(3)
	m.IncrCacheHit("results")
	m.IncrCacheMiss("results")

	snap := m.GetValuationSnapshot()

	if snap.WizardsCreated != 2 {
		t.Errorf("expected 2 wizards, got %d", snap.WizardsCreated)
	}
	if snap.ActiveWizards != 3 {
		t.Errorf("expected 3 active wizards, got %d", snap.ActiveWizards)
	}
	if snap.BackendCalculations != 2 || snap.LocalCalculations != 1 || snap.FailedCalculations != 1 {
		t.Errorf("unexpected calculation counts: %+v", snap)
	}
	if snap.FallbackRate != 0.25 {
		t.Errorf("expected fallback rate 0.25, got %f", snap.FallbackRate)
	}
	if snap.ErrorRate != 0.25 {
		t.Errorf("expected error rate 0.25, got %f", snap.ErrorRate)
	}
	if snap.BackgroundSyncErrors != 1 {
		t.Errorf("expected 1 sync error, got %d", snap.BackgroundSyncErrors)
	}
	if snap.CacheHitRate != 0.5 {
		t.Errorf("expected cache hit rate 0.5, got %f", snap.CacheHitRate)
	}
}

func TestNewMetrics_Twice(t *testing.T) {
	// private registries: no duplicate collector panic
	_ = observability.NewMetrics()
	_ = observability.NewMetrics()
}
