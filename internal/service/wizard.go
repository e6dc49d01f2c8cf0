package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Step predicates
// ============================================================

// StepComplete reports whether profile holds what step needs before the
// wizard may move past it. Step 4 is optional.
func StepComplete(step int, p domain.Profile) bool {
	switch step {
	case 1:
		pi := p.PersonalInfo
		return pi.HasAge() && pi.HasGender() && pi.HasLocation()
	case 2:
		return len(p.DigitalHabits.SocialNetworks) > 0
	case 3:
		return len(p.Consumption.ShoppingChannels) > 0 || len(p.Consumption.FavoriteCategories) > 0
	case 4:
		return true
	case 5:
		return p.Advanced.IncomeRange != "" && p.Advanced.ProfessionalArea != ""
	default:
		return false
	}
}

// ProfileComplete reports whether every step predicate holds.
func ProfileComplete(p domain.Profile) bool {
	for step := 1; step <= domain.TotalSteps; step++ {
		if !StepComplete(step, p) {
			return false
		}
	}
	return true
}

// ============================================================
// Wizard
// ============================================================

// WizardOptions tune a Wizard.
type WizardOptions struct {
	// LocalFallback lets the wizard value the profile with the local engine
	// when no backend session can be opened.
	LocalFallback bool
}

// Wizard drives one user through LANDING, STEP_1..STEP_5 and RESULT on top
// of a SessionManager.
//
// mu guards the wizard state only. Session calls that reach the network
// run with mu released; gen tells a late completion that Restart happened.
type Wizard struct {
	id      string
	session *SessionManager
	opts    WizardOptions
	logger  *zap.Logger

	mu          sync.Mutex
	state       domain.WizardState
	localOnly   bool
	gen         uint64
	starting    bool
	calculating int
	lastSeen    time.Time
}

// NewWizard creates a wizard on LANDING.
func NewWizard(id string, session *SessionManager, opts WizardOptions, logger *zap.Logger) *Wizard {
	return &Wizard{
		id:       id,
		session:  session,
		opts:     opts,
		logger:   logger.With(zap.String("wizard_id", id)),
		state:    domain.WizardLanding,
		lastSeen: time.Now(),
	}
}

// ID returns the wizard id.
func (w *Wizard) ID() string { return w.id }

// Session returns the underlying session manager.
func (w *Wizard) Session() *SessionManager { return w.session }

// State returns the current wizard state.
func (w *Wizard) State() domain.WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start leaves LANDING for STEP_1, restoring a stored session or opening a
// new one. When the backend is unreachable and LocalFallback is set the
// wizard continues in local-only mode; otherwise it stays on LANDING.
func (w *Wizard) Start(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Wizard.Start")
	defer span.End()

	w.mu.Lock()
	if w.state != domain.WizardLanding {
		defer w.mu.Unlock()
		return w.invalid("start")
	}
	if w.starting {
		w.mu.Unlock()
		return &domain.ErrCalculationBusy{CalculationID: w.session.Session().CalculationID}
	}
	w.starting = true
	gen := w.gen
	w.touchLocked()
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.starting = false
		w.mu.Unlock()
	}()

	localOnly := false
	if _, ok := w.session.RestoreSession(ctx); !ok {
		if err := w.session.InitializeSession(ctx); err != nil {
			if !w.opts.LocalFallback {
				return err
			}
			w.logger.Warn("backend unavailable, continuing in local-only mode", zap.Error(err))
			localOnly = true
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen || w.state != domain.WizardLanding {
		return w.invalid("start")
	}
	w.localOnly = localOnly
	w.state = domain.WizardStep1
	return nil
}

// Next moves to the following step when the current one is complete. On
// STEP_5 it runs the final calculation and moves to RESULT only on
// success; a failure keeps STEP_5 and is returned.
func (w *Wizard) Next(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Wizard.Next")
	defer span.End()

	w.mu.Lock()
	if !w.state.IsStep() {
		defer w.mu.Unlock()
		return w.invalid("next")
	}
	step := w.state.Step()
	if !StepComplete(step, w.session.Profile()) {
		w.mu.Unlock()
		return &domain.ErrStepIncomplete{Step: step}
	}
	w.touchLocked()
	if w.state != domain.WizardStep5 {
		w.state++
		w.mu.Unlock()
		return nil
	}

	w.calculating++
	gen := w.gen
	localOnly := w.localOnly
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.calculating--
		w.mu.Unlock()
	}()

	fellBack, err := w.calculate(ctx, localOnly)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		return w.invalid("next")
	}
	if err != nil {
		return err
	}
	if fellBack {
		w.localOnly = true
	}
	if w.state == domain.WizardStep5 {
		w.state = domain.WizardResult
	}
	return nil
}

// calculate reports whether it fell back to the local engine.
func (w *Wizard) calculate(ctx context.Context, localOnly bool) (bool, error) {
	if localOnly {
		w.session.CalculateLocally()
		return false, nil
	}

	_, err := w.session.CalculateFinalValue(ctx)
	var noSession *domain.ErrNoActiveSession
	if errors.As(err, &noSession) && w.opts.LocalFallback {
		w.logger.Warn("no backend session, calculating locally")
		w.session.CalculateLocally()
		return true, nil
	}
	return false, err
}

// Prev moves one step back; STEP_1 goes back to LANDING.
func (w *Wizard) Prev() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.state.IsStep() {
		return w.invalid("prev")
	}
	if w.calculating > 0 {
		return w.busy()
	}
	w.touchLocked()
	w.state--
	return nil
}

// GoTo jumps back to an earlier step, or stays on the current one.
// Forward jumps are rejected so step predicates cannot be skipped.
func (w *Wizard) GoTo(step int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	target, ok := domain.StepState(step)
	if !ok {
		return &domain.ErrValidation{Field: "step", Message: fmt.Sprintf("passo deve estar entre 1 e %d", domain.TotalSteps)}
	}
	if !w.state.IsStep() && w.state != domain.WizardResult {
		return w.invalid(fmt.Sprintf("goto %d", step))
	}
	if target > w.state {
		return w.invalid(fmt.Sprintf("goto %d", step))
	}
	if w.calculating > 0 {
		return w.busy()
	}
	w.touchLocked()
	w.state = target
	return nil
}

// Restart returns to LANDING and clears the session. It is allowed from
// any state but LANDING; results of in-flight requests are dropped.
func (w *Wizard) Restart(ctx context.Context) error {
	w.mu.Lock()
	if w.state == domain.WizardLanding {
		defer w.mu.Unlock()
		return w.invalid("restart")
	}
	w.gen++
	w.state = domain.WizardLanding
	w.localOnly = false
	w.touchLocked()
	w.mu.Unlock()

	w.logger.Info("wizard restarted")
	return w.session.ClearSession(ctx)
}

// Update merges patch into the profile. Only allowed on a step.
func (w *Wizard) Update(ctx context.Context, patch domain.SectionPatch) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.state.IsStep() {
		return w.invalid("update " + string(patch.Section()))
	}
	if w.calculating > 0 {
		return w.busy()
	}
	w.touchLocked()
	// UpdateProfile does no synchronous I/O, so holding mu keeps updates in
	// call order.
	w.session.UpdateProfile(ctx, patch)
	return nil
}

// CanProceed reports whether Next would be accepted right now.
func (w *Wizard) CanProceed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canProceedLocked()
}

func (w *Wizard) canProceedLocked() bool {
	return w.state.IsStep() && StepComplete(w.state.Step(), w.session.Profile())
}

// Progress is the completion percentage shown in the progress bar.
func (w *Wizard) Progress() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return progress(w.state)
}

func progress(s domain.WizardState) int {
	switch {
	case s == domain.WizardResult:
		return 100
	case s.IsStep():
		return s.Step() * 100 / domain.TotalSteps
	default:
		return 0
	}
}

// IsProfileComplete reports whether every step predicate holds.
func (w *Wizard) IsProfileComplete() bool {
	return ProfileComplete(w.session.Profile())
}

// Touch marks the wizard as used now.
func (w *Wizard) Touch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked()
}

// IdleSince reports whether the wizard has not been used since cutoff and
// has no start or calculation running.
func (w *Wizard) IdleSince(cutoff time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.starting && w.calculating == 0 && w.lastSeen.Before(cutoff)
}

// Snapshot returns a read-only view of the wizard and its session.
func (w *Wizard) Snapshot() domain.WizardSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	view := w.session.Snapshot()
	snap := domain.WizardSnapshot{
		ID:         w.id,
		State:      w.state,
		Progress:   progress(w.state),
		CanProceed: w.canProceedLocked(),
		LocalOnly:  w.localOnly,
		Profile:    view.Profile,
		Session:    view.Session,
	}
	if info, ok := domain.StepInfos[w.state.Step()]; ok {
		snap.Step = &info
	}
	if w.state == domain.WizardResult {
		snap.Result = view.Result
	}
	return snap
}

// resume puts a rebuilt wizard on state without running any transition.
func (w *Wizard) resume(state domain.WizardState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = state
}

func (w *Wizard) touchLocked() {
	w.lastSeen = time.Now()
}

func (w *Wizard) invalid(action string) error {
	return &domain.ErrInvalidTransition{From: w.state.String(), Action: action}
}

func (w *Wizard) busy() error {
	return &domain.ErrCalculationBusy{CalculationID: w.session.Session().CalculationID}
}
