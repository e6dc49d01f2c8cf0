package domain

// SessionState is the lifecycle position of a calculation session.
type SessionState string

const (
	SessionUninitialized SessionState = "UNINITIALIZED"
	SessionInitializing  SessionState = "INITIALIZING"
	SessionActive        SessionState = "ACTIVE"
	SessionCalculating   SessionState = "CALCULATING"
	SessionDone          SessionState = "DONE"
	SessionError         SessionState = "ERROR"
)

// DefaultSessionKey is the storage key of a single-user session.
const DefaultSessionKey = "datapay_session"

// Session is the server-correlated handle of one calculation attempt.
type Session struct {
	SessionID     string       `json:"sessionId,omitempty"`
	CalculationID string       `json:"calculationId,omitempty"`
	State         SessionState `json:"state"`
	IsLoading     bool         `json:"isLoading"`
	Error         string       `json:"error,omitempty"`
	// SyncError holds the last failed background push. It never drives state.
	SyncError string `json:"syncError,omitempty"`
}

// SessionHandle is the persisted part of a Session.
type SessionHandle struct {
	SessionID     string `json:"sessionId"`
	CalculationID string `json:"calculationId"`
}

// Valid reports whether the handle can address a backend calculation.
func (h *SessionHandle) Valid() bool {
	return h != nil && h.CalculationID != ""
}

// ============================================================
// Backend wire types
// ============================================================

// StartCalculationResponse is returned by POST /calculations/start.
type StartCalculationResponse struct {
	Success       bool   `json:"success"`
	SessionID     string `json:"session_id"`
	CalculationID string `json:"calculation_id"`
	Error         string `json:"error,omitempty"`
}

// CalculationResponse is returned by the calculate and fetch endpoints.
type CalculationResponse struct {
	Success bool             `json:"success"`
	Result  *ValuationResult `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}
