package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/observability"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/datapay-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("service/session")

// errStale is returned when ClearSession ran while a request was in flight.
// The late completion is dropped.
var errStale = errors.New("session was cleared while the request was in flight")

// DefaultSyncTimeout bounds a background profile push.
const DefaultSyncTimeout = 5 * time.Second

// SessionOptions tune a SessionManager.
type SessionOptions struct {
	// Key is the storage key of the session handle.
	Key string
	// SyncTimeout bounds each background profile push.
	SyncTimeout time.Duration
}

// SessionView is a consistent copy of a manager's state.
type SessionView struct {
	Profile domain.Profile
	Session domain.Session
	Result  *domain.ValuationResult
}

// SessionManager owns one Profile and its backend calculation session.
//
// All state sits behind mu, which is never held across network I/O. Every
// asynchronous completion carries the epoch it started in and is dropped
// when ClearSession has bumped the epoch since.
type SessionManager struct {
	backend  port.CalculationBackend
	store    port.SessionStore
	engine   port.Valuator
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger

	key         string
	syncTimeout time.Duration

	mu      sync.Mutex
	profile domain.Profile
	session domain.Session
	result  *domain.ValuationResult
	epoch   uint64

	// storeMu orders writes to the storage key.
	storeMu sync.Mutex

	// pushMu serializes background pushes; pushSeq/pushedSeq let an older
	// profile be skipped once a newer one reached the backend.
	pushMu    sync.Mutex
	pushSeq   uint64
	pushedSeq uint64
	pending   sync.WaitGroup

	calc singleflight.Group
}

// NewSessionManager creates a manager with a default Profile and no session.
func NewSessionManager(
	backend port.CalculationBackend,
	store port.SessionStore,
	engine port.Valuator,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts SessionOptions,
) *SessionManager {
	if opts.Key == "" {
		opts.Key = domain.DefaultSessionKey
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = DefaultSyncTimeout
	}
	return &SessionManager{
		backend:     backend,
		store:       store,
		engine:      engine,
		bulkhead:    bulkhead,
		metrics:     metrics,
		logger:      logger.With(zap.String("session_key", opts.Key)),
		key:         opts.Key,
		syncTimeout: opts.SyncTimeout,
		profile:     domain.NewProfile(),
		session:     domain.Session{State: domain.SessionUninitialized},
	}
}

// Key returns the storage key of this manager.
func (m *SessionManager) Key() string { return m.key }

// ============================================================
// Lifecycle
// ============================================================

// InitializeSession opens a backend calculation for the current Profile.
// It is allowed from UNINITIALIZED and ERROR.
func (m *SessionManager) InitializeSession(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "SessionManager.InitializeSession")
	defer span.End()

	m.mu.Lock()
	if s := m.session.State; s != domain.SessionUninitialized && s != domain.SessionError {
		m.mu.Unlock()
		return &domain.ErrInvalidTransition{From: string(s), Action: "initialize"}
	}
	m.session.State = domain.SessionInitializing
	m.session.IsLoading = true
	m.session.Error = ""
	epoch := m.epoch
	profile := m.profile.Clone()
	m.mu.Unlock()

	start := time.Now()
	handle, err := m.backend.Start(ctx, profile)
	m.metrics.RecordRequestDuration("start", time.Since(start))

	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		m.logger.Debug("dropping stale session start")
		return &domain.ErrSessionInit{Err: errStale}
	}
	if err != nil {
		m.session.State = domain.SessionError
		m.session.IsLoading = false
		initErr := &domain.ErrSessionInit{Err: err}
		m.session.Error = initErr.Error()
		m.mu.Unlock()

		m.metrics.IncrBackendError("start")
		m.logger.Error("failed to initialize session", zap.Error(err))
		span.RecordError(err)
		return initErr
	}
	m.session.SessionID = handle.SessionID
	m.session.CalculationID = handle.CalculationID
	m.session.State = domain.SessionActive
	m.session.IsLoading = false
	m.mu.Unlock()

	span.SetAttributes(attribute.String("calculation.id", handle.CalculationID))
	m.logger.Info("session initialized",
		zap.String("session_id", handle.SessionID),
		zap.String("calculation_id", handle.CalculationID),
	)
	m.persist(ctx, epoch, handle)
	return nil
}

// RestoreSession rehydrates the session ids from the store. Missing or
// malformed data means no session: it returns (nil, false) and never calls
// the backend.
func (m *SessionManager) RestoreSession(ctx context.Context) (*domain.SessionHandle, bool) {
	m.mu.Lock()
	if m.session.CalculationID != "" {
		current := &domain.SessionHandle{SessionID: m.session.SessionID, CalculationID: m.session.CalculationID}
		m.mu.Unlock()
		return current, true
	}
	epoch := m.epoch
	m.mu.Unlock()

	handle, err := m.store.Load(ctx, m.key)
	if err != nil {
		m.logger.Warn("failed to read stored session", zap.Error(err))
		return nil, false
	}
	if !handle.Valid() {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return nil, false
	}
	m.session.SessionID = handle.SessionID
	m.session.CalculationID = handle.CalculationID
	m.session.State = domain.SessionActive
	m.session.IsLoading = false
	m.session.Error = ""

	m.logger.Debug("session restored", zap.String("calculation_id", handle.CalculationID))
	return &domain.SessionHandle{SessionID: handle.SessionID, CalculationID: handle.CalculationID}, true
}

// ClearSession resets the Profile and Session, discards the result and
// deletes the stored handle. In-flight completions become stale.
func (m *SessionManager) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	m.epoch++
	m.profile = domain.NewProfile()
	m.session = domain.Session{State: domain.SessionUninitialized}
	m.result = nil
	m.mu.Unlock()

	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	if err := m.store.Delete(ctx, m.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.logger.Debug("session cleared")
	return nil
}

func (m *SessionManager) persist(ctx context.Context, epoch uint64, handle *domain.SessionHandle) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	if m.currentEpoch() != epoch {
		return
	}
	if err := m.store.Save(ctx, m.key, handle); err != nil {
		m.logger.Warn("failed to persist session", zap.Error(err))
	}
}

func (m *SessionManager) currentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// ============================================================
// Profile updates
// ============================================================

// UpdateProfile merges patch into its section synchronously and pushes the
// full Profile to the backend in the background. A failed push is logged,
// counted and recorded in Session.SyncError; it never changes state.
func (m *SessionManager) UpdateProfile(ctx context.Context, patch domain.SectionPatch) {
	m.mu.Lock()
	patch.ApplyTo(&m.profile)
	profile := m.profile.Clone()
	calculationID := m.session.CalculationID
	epoch := m.epoch
	m.pushSeq++
	seq := m.pushSeq
	m.mu.Unlock()

	if calculationID == "" {
		m.logger.Debug("no active session, profile kept locally", zap.String("section", string(patch.Section())))
		return
	}

	syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.syncTimeout)
	m.pending.Add(1)
	m.bulkhead.Go(syncCtx, func(ctx context.Context) {
		defer m.pending.Done()
		defer cancel()
		m.push(ctx, epoch, seq, calculationID, profile)
	}, func(err error) {
		defer m.pending.Done()
		cancel()
		m.recordSyncError(epoch, fmt.Errorf("sync queue: %w", err))
	})
}

func (m *SessionManager) push(ctx context.Context, epoch, seq uint64, calculationID string, profile domain.Profile) {
	m.pushMu.Lock()
	defer m.pushMu.Unlock()

	if seq <= m.pushedSeq || m.currentEpoch() != epoch {
		return
	}

	start := time.Now()
	err := m.backend.Update(ctx, calculationID, profile)
	m.metrics.RecordRequestDuration("update", time.Since(start))
	if err != nil {
		m.recordSyncError(epoch, err)
		return
	}
	m.pushedSeq = seq

	m.mu.Lock()
	if epoch == m.epoch {
		m.session.SyncError = ""
	}
	m.mu.Unlock()
}

func (m *SessionManager) recordSyncError(epoch uint64, err error) {
	m.metrics.IncrSyncError()
	m.logger.Warn("background profile sync failed", zap.Error(err))

	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch == m.epoch {
		m.session.SyncError = err.Error()
	}
}

// WaitForSync blocks until every queued background push has finished.
// No UpdateProfile call may run concurrently with it.
func (m *SessionManager) WaitForSync() {
	m.pending.Wait()
}

// ============================================================
// Calculation
// ============================================================

// CalculateFinalValue asks the backend for the final valuation. Concurrent
// callers share one in-flight request. Allowed from ACTIVE, ERROR and DONE.
func (m *SessionManager) CalculateFinalValue(ctx context.Context) (*domain.ValuationResult, error) {
	ctx, span := tracer.Start(ctx, "SessionManager.CalculateFinalValue")
	defer span.End()

	m.mu.Lock()
	calculationID := m.session.CalculationID
	if calculationID == "" {
		m.mu.Unlock()
		return nil, &domain.ErrNoActiveSession{}
	}
	switch m.session.State {
	case domain.SessionActive, domain.SessionError, domain.SessionDone, domain.SessionCalculating:
	default:
		state := m.session.State
		m.mu.Unlock()
		return nil, &domain.ErrInvalidTransition{From: string(state), Action: "calculate"}
	}
	epoch := m.epoch
	m.mu.Unlock()

	span.SetAttributes(attribute.String("calculation.id", calculationID))

	key := fmt.Sprintf("%s#%d", calculationID, epoch)
	ch := m.calc.DoChan(key, func() (any, error) {
		return m.runCalculation(context.WithoutCancel(ctx), epoch, calculationID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			span.RecordError(res.Err)
			return nil, res.Err
		}
		return res.Val.(*domain.ValuationResult).Clone(), nil
	}
}

// runCalculation is the body of one shared flight. It alone moves the
// session into CALCULATING and always settles it, so a caller joining a
// flight that already finished never leaves the session loading.
func (m *SessionManager) runCalculation(ctx context.Context, epoch uint64, calculationID string) (*domain.ValuationResult, error) {
	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		return nil, &domain.ErrCalculation{CalculationID: calculationID, Err: errStale}
	}
	m.session.State = domain.SessionCalculating
	m.session.IsLoading = true
	m.session.Error = ""
	m.mu.Unlock()

	start := time.Now()
	result, err := m.backend.Calculate(ctx, calculationID)
	m.metrics.RecordRequestDuration("calculate", time.Since(start))

	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch {
		m.logger.Debug("dropping stale calculation", zap.String("calculation_id", calculationID))
		return nil, &domain.ErrCalculation{CalculationID: calculationID, Err: errStale}
	}
	if err != nil {
		calcErr := &domain.ErrCalculation{CalculationID: calculationID, Err: err}
		m.session.State = domain.SessionError
		m.session.IsLoading = false
		m.session.Error = calcErr.Error()

		m.metrics.IncrBackendError("calculate")
		m.metrics.RecordCalculation(domain.SourceBackend, nil, err)
		m.logger.Error("calculation failed", zap.String("calculation_id", calculationID), zap.Error(err))
		return nil, calcErr
	}

	m.completeLocked(result, domain.SourceBackend)
	m.metrics.RecordCalculation(domain.SourceBackend, m.result, nil)
	m.logger.Info("calculation completed",
		zap.String("calculation_id", calculationID),
		zap.Float64("total", result.Total),
	)
	return m.result, nil
}

// CalculateLocally values the current Profile with the local engine. It
// needs no session and always succeeds.
func (m *SessionManager) CalculateLocally() *domain.ValuationResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := m.engine.Estimate(m.profile)
	m.completeLocked(result, domain.SourceLocal)
	m.metrics.RecordCalculation(domain.SourceLocal, m.result, nil)
	m.logger.Info("calculated locally", zap.Float64("total", result.Total))
	return m.result.Clone()
}

// FetchResult loads the result of a calculation the backend already
// finished, e.g. after the process restarted.
func (m *SessionManager) FetchResult(ctx context.Context) (*domain.ValuationResult, error) {
	ctx, span := tracer.Start(ctx, "SessionManager.FetchResult")
	defer span.End()

	m.mu.Lock()
	calculationID := m.session.CalculationID
	epoch := m.epoch
	m.mu.Unlock()
	if calculationID == "" {
		return nil, &domain.ErrNoActiveSession{}
	}

	result, err := m.backend.Get(ctx, calculationID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return nil, errStale
	}
	m.completeLocked(result, domain.SourceBackend)
	return m.result.Clone(), nil
}

// completeLocked stores result and moves to DONE. Insights the backend
// omitted are derived locally.
func (m *SessionManager) completeLocked(result *domain.ValuationResult, source domain.ResultSource) {
	stored := result.Clone()
	if len(result.Insights) == 0 && source == domain.SourceBackend {
		stored.Insights = m.engine.Estimate(m.profile).Insights
	}
	stored.Source = source

	m.result = stored
	m.session.State = domain.SessionDone
	m.session.IsLoading = false
	m.session.Error = ""
}

// ============================================================
// Readers
// ============================================================

// Profile returns a copy of the current Profile.
func (m *SessionManager) Profile() domain.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile.Clone()
}

// Session returns a copy of the current Session.
func (m *SessionManager) Session() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Result returns a copy of the last result, or nil.
func (m *SessionManager) Result() *domain.ValuationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result.Clone()
}

// Snapshot returns Profile, Session and result read under one lock.
func (m *SessionManager) Snapshot() SessionView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SessionView{
		Profile: m.profile.Clone(),
		Session: m.session,
		Result:  m.result.Clone(),
	}
}
