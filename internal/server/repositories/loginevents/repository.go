// Package loginevents declares the repository contract for the append-only
// login audit trail.
package loginevents

import (
	"context"

	"github.com/akarpov87/authkeeper/internal/server/models"
)

// Repository defines persistence operations for login events.
type Repository interface {
	// Create appends an audit record for a successful login.
	Create(ctx context.Context, accountID int64, clientDescriptor string) error

	// ListByAccount returns the account's login events, newest first.
	ListByAccount(ctx context.Context, accountID int64) ([]models.LoginEvent, error)
}
