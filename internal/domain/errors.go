package domain

import "fmt"

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrBackendRejected is returned when the backend answers success=false.
type ErrBackendRejected struct {
	Operation string
	Message   string
}

func (e *ErrBackendRejected) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend rejected %s", e.Operation)
	}
	return fmt.Sprintf("backend rejected %s: %s", e.Operation, e.Message)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates an invalid or missing wizard token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ============================================================
// Session & wizard errors
// ============================================================

// ErrSessionInit indicates the backend could not start a calculation.
type ErrSessionInit struct {
	Err error
}

func (e *ErrSessionInit) Error() string {
	return fmt.Sprintf("Erro ao inicializar sessão: %v", e.Err)
}

func (e *ErrSessionInit) Unwrap() error {
	return e.Err
}

// ErrNoActiveSession indicates a calculation was requested without a
// calculation id.
type ErrNoActiveSession struct{}

func (e *ErrNoActiveSession) Error() string {
	return "Nenhuma sessão ativa"
}

// ErrCalculation indicates the final calculation failed.
type ErrCalculation struct {
	CalculationID string
	Err           error
}

func (e *ErrCalculation) Error() string {
	return fmt.Sprintf("Erro ao calcular o valor dos dados [%s]: %v", e.CalculationID, e.Err)
}

func (e *ErrCalculation) Unwrap() error {
	return e.Err
}

// ErrCalculationBusy indicates a calculation is already running and the
// caller cannot join it.
type ErrCalculationBusy struct {
	CalculationID string
}

func (e *ErrCalculationBusy) Error() string {
	return fmt.Sprintf("calculation already in progress: %s", e.CalculationID)
}

// ErrInvalidTransition indicates an action that is not allowed in the
// current state.
type ErrInvalidTransition struct {
	From   string
	Action string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition: %s from %s", e.Action, e.From)
}

// ErrStepIncomplete indicates the current step is missing required data.
type ErrStepIncomplete struct {
	Step int
}

func (e *ErrStepIncomplete) Error() string {
	return fmt.Sprintf("step %d is incomplete", e.Step)
}
