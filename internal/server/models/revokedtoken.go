package models

import "time"

// RevokedToken marks a refresh token as spent. ExpiresAt mirrors the token's
// own expiry so storage backends can drop records that no longer matter.
type RevokedToken struct {
	ID        int64
	Token     string
	AccountID int64
	ExpiresAt time.Time
}
