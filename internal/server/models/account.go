// Package models contains the persisted entities of the service.
package models

import "time"

// Account is the root identity record. PasswordHash holds the bcrypt output;
// the plaintext never reaches this struct.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
