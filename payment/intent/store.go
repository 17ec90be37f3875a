package intent

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoIntent = errors.New("intent not found")
	// ErrStale is returned when a conditional write matched no pending intent.
	ErrStale = errors.New("intent is no longer pending or is claimed")
)

// Transition describes one conditional write out of pending. It applies only
// while the intent is pending and, when Token is set, while that finalize
// claim is held. With an empty Token the intent must be unclaimed or its
// claim older than Lease.
type Transition struct {
	ID            string
	To            Status
	Token         string
	At            time.Time
	Lease         time.Duration
	Proof         *PaymentProof
	FailureReason string
}

// Store is the durable intent record. Implementations must apply Claim,
// Release and Transition as single conditional updates.
type Store interface {
	Create(ctx context.Context, in *Intent) error
	Get(ctx context.Context, id string) (*Intent, error)
	Claim(ctx context.Context, id, token string, now time.Time, lease time.Duration) error
	Release(ctx context.Context, id, token string) error
	Transition(ctx context.Context, t Transition) (*Intent, error)
	SetFulfillment(ctx context.Context, id string, ref FulfillmentRef) error
	ListExpired(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]string, error)
}
