package models

import "time"

// LoginEvent is an append-only audit record created on each successful login.
// It references an Account by id but does not own its lifecycle.
type LoginEvent struct {
	ID               int64
	AccountID        int64
	ClientDescriptor string
	OccurredAt       time.Time
}
