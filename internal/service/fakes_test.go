package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/observability"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/store"
	"github.com/boddenberg/datapay-bfa-go/internal/service"
	"github.com/boddenberg/datapay-bfa-go/internal/valuation"

	"go.uber.org/zap"
)

// --- Fake backend ---

type fakeBackend struct {
	mu sync.Mutex

	startHandle *domain.SessionHandle
	startErr    error
	updateErr   error
	calcResult  *domain.ValuationResult
	calcErr     error
	getResult   *domain.ValuationResult
	getErr      error

	// The gates, when set, hold the matching call until they are closed.
	// The entered channels signal that the call is waiting on its gate.
	startGate     chan struct{}
	startEntered  chan struct{}
	updateGate    chan struct{}
	updateEntered chan struct{}
	calcGate      chan struct{}
	calcEntered   chan struct{}

	starts, updates, calcs, gets int
	lastUpdate                   domain.Profile
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		startHandle: &domain.SessionHandle{SessionID: "sess-1", CalculationID: "calc-1"},
		calcResult: &domain.ValuationResult{
			Total:     336,
			Breakdown: domain.CategoryValues{Demographics: 75, DigitalHabits: 95, Consumption: 61, Advanced: 105},
			RawValues: domain.CategoryValues{Demographics: 75, DigitalHabits: 79, Consumption: 55, Advanced: 81},
		},
	}
}

func (f *fakeBackend) Start(_ context.Context, _ domain.Profile) (*domain.SessionHandle, error) {
	f.mu.Lock()
	f.starts++
	gate, entered := f.startGate, f.startEntered
	f.mu.Unlock()

	waitGate(gate, entered)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	h := *f.startHandle
	return &h, nil
}

func (f *fakeBackend) Update(_ context.Context, _ string, p domain.Profile) error {
	f.mu.Lock()
	f.updates++
	f.lastUpdate = p
	gate, entered := f.updateGate, f.updateEntered
	f.mu.Unlock()

	waitGate(gate, entered)

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateErr
}

func (f *fakeBackend) Calculate(_ context.Context, _ string) (*domain.ValuationResult, error) {
	f.mu.Lock()
	f.calcs++
	gate, entered := f.calcGate, f.calcEntered
	f.mu.Unlock()

	waitGate(gate, entered)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calcErr != nil {
		return nil, f.calcErr
	}
	return f.calcResult.Clone(), nil
}

func (f *fakeBackend) Get(_ context.Context, id string) (*domain.ValuationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getResult == nil {
		return nil, &domain.ErrNotFound{Resource: "calculation", ID: id}
	}
	return f.getResult.Clone(), nil
}

func waitGate(gate, entered chan struct{}) {
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
}

func (f *fakeBackend) counts() (starts, updates, calcs, gets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.updates, f.calcs, f.gets
}

// --- Helpers ---

func newManager(t *testing.T, backend *fakeBackend, st *store.Memory) *service.SessionManager {
	t.Helper()
	return service.NewSessionManager(
		backend,
		st,
		valuation.NewEngine(nil),
		resilience.NewBulkhead(4),
		observability.NewMetrics(),
		zap.NewNop(),
		service.SessionOptions{SyncTimeout: time.Second},
	)
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func setPtr(v ...string) *[]string { return &v }

// fillExampleProfile applies the five sections of the reference profile.
func fillExampleProfile(ctx context.Context, apply func(context.Context, domain.SectionPatch)) {
	apply(ctx, domain.PersonalInfoPatch{Age: intPtr(30), Gender: strPtr("masculino"), Location: strPtr("São Paulo")})
	apply(ctx, domain.DigitalHabitsPatch{SocialNetworks: setPtr("instagram", "tiktok"), UsageFrequency: intPtr(8)})
	apply(ctx, domain.ConsumptionPatch{ShoppingChannels: setPtr("ecommerce"), FavoriteCategories: setPtr("eletronicos")})
	apply(ctx, domain.AdvancedPatch{IncomeRange: strPtr("3000_8000"), ProfessionalArea: strPtr("tecnologia")})
}
