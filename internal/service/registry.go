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

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const wizardTokenType = "wizard"

// RegistryOptions tune a Registry.
type RegistryOptions struct {
	Secret        []byte
	TokenTTL      time.Duration
	IdleTTL       time.Duration
	MaxWizards    int
	SyncTimeout   time.Duration
	LocalFallback bool
}

// WizardClaims are the claims of a wizard handle token.
type WizardClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Registry keeps the live wizards of the BFA, one per browser, and hands
// out the signed tokens that address them.
//
// Wizards unused for IdleTTL are swept from memory, and the least recently
// used one goes when MaxWizards is reached. Their session handle stays in
// the store, so a later request with a valid token rebuilds the wizard.
type Registry struct {
	backend  port.CalculationBackend
	store    port.SessionStore
	engine   port.Valuator
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
	opts     RegistryOptions

	// mu orders a lookup and its touch against the idle sweep, so a wizard
	// handed out by Resolve is never swept before it is marked used.
	mu       sync.Mutex
	wizards  *lru.Cache[string, *Wizard]
	rebuilds singleflight.Group

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates an empty registry.
func NewRegistry(
	backend port.CalculationBackend,
	store port.SessionStore,
	engine port.Valuator,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts RegistryOptions,
) (*Registry, error) {
	if len(opts.Secret) == 0 {
		return nil, fmt.Errorf("wizard secret is empty")
	}
	if opts.MaxWizards <= 0 {
		opts.MaxWizards = 10000
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}

	r := &Registry{
		backend:  backend,
		store:    store,
		engine:   engine,
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
		stop:     make(chan struct{}),
	}
	wizards, err := lru.NewWithEvict[string, *Wizard](opts.MaxWizards, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create wizard cache: %w", err)
	}
	r.wizards = wizards
	go r.janitor()
	return r, nil
}

// onEvict runs outside the cache lock, so reading Len here is safe.
func (r *Registry) onEvict(id string, _ *Wizard) {
	r.logger.Debug("wizard evicted", zap.String("wizard_id", id))
	r.metrics.SetActiveWizards(r.wizards.Len())
}

// Create opens a new wizard on LANDING and returns its token.
func (r *Registry) Create(ctx context.Context) (*domain.WizardCreated, error) {
	_, span := tracer.Start(ctx, "Registry.Create")
	defer span.End()

	id := uuid.NewString()
	token, err := r.sign(id)
	if err != nil {
		return nil, fmt.Errorf("sign wizard token: %w", err)
	}

	w := r.newWizard(id)
	r.mu.Lock()
	r.wizards.Add(id, w)
	r.mu.Unlock()
	r.metrics.WizardOpened()
	r.metrics.SetActiveWizards(r.wizards.Len())

	r.logger.Info("wizard created", zap.String("wizard_id", id))
	return &domain.WizardCreated{Token: token, Wizard: w.Snapshot()}, nil
}

// Resolve returns the wizard addressed by token, rebuilding it from the
// session store when it is no longer in memory.
func (r *Registry) Resolve(ctx context.Context, token string) (*Wizard, error) {
	id, err := r.Verify(token)
	if err != nil {
		return nil, err
	}
	if w, ok := r.lookup(id); ok {
		return w, nil
	}

	v, err, _ := r.rebuilds.Do(id, func() (any, error) {
		if w, ok := r.lookup(id); ok {
			return w, nil
		}
		w := r.rebuild(ctx, id)
		r.mu.Lock()
		r.wizards.Add(id, w)
		r.mu.Unlock()
		r.metrics.SetActiveWizards(r.wizards.Len())
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Wizard), nil
}

func (r *Registry) lookup(id string) (*Wizard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.wizards.Get(id)
	if ok {
		w.Touch()
	}
	return w, ok
}

// rebuild restores a wizard after eviction or restart. The Profile itself
// is not persisted, so a wizard with an unfinished calculation resumes on
// LANDING with its session, and one with a finished calculation on RESULT.
func (r *Registry) rebuild(ctx context.Context, id string) *Wizard {
	ctx, span := tracer.Start(ctx, "Registry.rebuild")
	defer span.End()

	w := r.newWizard(id)
	if _, ok := w.session.RestoreSession(ctx); !ok {
		return w
	}

	if _, err := w.session.FetchResult(ctx); err != nil {
		var nf *domain.ErrNotFound
		if !errors.As(err, &nf) {
			r.logger.Debug("no finished result for restored wizard", zap.String("wizard_id", id), zap.Error(err))
		}
		return w
	}
	w.resume(domain.WizardResult)
	r.logger.Info("wizard resumed on result", zap.String("wizard_id", id))
	return w
}

// Verify checks token and returns the wizard id it carries.
func (r *Registry) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &WizardClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.opts.Secret, nil
	})
	if err != nil {
		return "", &domain.ErrUnauthorized{Message: "Token de assistente inválido ou expirado"}
	}

	claims, ok := parsed.Claims.(*WizardClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", &domain.ErrUnauthorized{Message: "Token de assistente inválido"}
	}
	if claims.Type != wizardTokenType {
		return "", &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}
	return claims.Subject, nil
}

// Len returns the number of wizards held in memory.
func (r *Registry) Len() int {
	return r.wizards.Len()
}

// Close stops the idle sweep. It is safe to call more than once.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// sweepIdle drops wizards that have not been used for IdleTTL and have no
// start or calculation running.
func (r *Registry) sweepIdle(now time.Time) {
	cutoff := now.Add(-r.opts.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.wizards.Keys() {
		w, ok := r.wizards.Peek(id)
		if ok && w.IdleSince(cutoff) {
			r.wizards.Remove(id)
		}
	}
}

// janitor periodically sweeps idle wizards.
func (r *Registry) janitor() {
	ticker := time.NewTicker(r.opts.IdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			r.sweepIdle(now)
		case <-r.stop:
			return
		}
	}
}

// WaitForSync waits for the background pushes of every live wizard.
func (r *Registry) WaitForSync() {
	for _, w := range r.wizards.Values() {
		w.session.WaitForSync()
	}
}

func (r *Registry) newWizard(id string) *Wizard {
	session := NewSessionManager(r.backend, r.store, r.engine, r.bulkhead, r.metrics, r.logger, SessionOptions{
		Key:         SessionKey(id),
		SyncTimeout: r.opts.SyncTimeout,
	})
	return NewWizard(id, session, WizardOptions{LocalFallback: r.opts.LocalFallback}, r.logger)
}

func (r *Registry) sign(id string) (string, error) {
	now := time.Now()
	claims := WizardClaims{
		Type: wizardTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.opts.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.opts.Secret)
}

// SessionKey is the storage key of the session owned by wizard id.
func SessionKey(id string) string {
	return domain.DefaultSessionKey + ":" + id
}
