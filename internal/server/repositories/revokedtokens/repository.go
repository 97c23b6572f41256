// Package revokedtokens declares the revocation list: refresh tokens that
// have been spent by a refresh exchange or a logout.
package revokedtokens

import (
	"context"
	"time"
)

// Repository defines the revocation store. Entries are append-only; nothing
// in the request path ever removes them. Backends may drop records once
// expires passes, since an expired token fails signature-level validation
// anyway.
type Repository interface {
	// Record marks a refresh token as spent. Recording the same token
	// twice is not an error.
	Record(ctx context.Context, token string, accountID int64, expires time.Time) error

	// IsRevoked reports whether the token has been recorded.
	IsRevoked(ctx context.Context, token string) (bool, error)
}
