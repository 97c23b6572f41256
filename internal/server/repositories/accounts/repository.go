// Package accounts declares the repository contract for identity records.
package accounts

import (
	"context"

	"github.com/akarpov87/authkeeper/internal/server/models"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	// Create inserts a new account and fills in its id. A duplicate email
	// surfaces common.ErrEmailTaken.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByEmail looks up an account by its email exactly as stored.
	// Returns common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// UpdatePasswordHash overwrites the stored hash for the given email.
	// Returns common.ErrorNotFound when no such account exists.
	UpdatePasswordHash(ctx context.Context, email string, passwordHash string) error
}
