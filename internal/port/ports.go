// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
)

// CalculationBackend is the remote valuation service.
type CalculationBackend interface {
	// Start opens a calculation for the given profile.
	Start(ctx context.Context, profile domain.Profile) (*domain.SessionHandle, error)
	// Update replaces the profile held by the backend. The ack is ignored.
	Update(ctx context.Context, calculationID string, profile domain.Profile) error
	// Calculate runs the final valuation. It is never retried.
	Calculate(ctx context.Context, calculationID string) (*domain.ValuationResult, error)
	// Get returns the result of an already finished calculation.
	Get(ctx context.Context, calculationID string) (*domain.ValuationResult, error)
}

// SessionStore persists session handles by key. Load returns (nil, nil)
// when nothing usable is stored under key.
type SessionStore interface {
	Load(ctx context.Context, key string) (*domain.SessionHandle, error)
	Save(ctx context.Context, key string, handle *domain.SessionHandle) error
	Delete(ctx context.Context, key string) error
}

// Valuator computes a valuation locally.
type Valuator interface {
	Calculate(profile domain.Profile) domain.ValuationResult
	Estimate(profile domain.Profile) *domain.ValuationResult
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
