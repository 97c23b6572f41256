// Package common defines shared constants and sentinel errors used across
// AuthKeeper components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrInternal           = errors.New("internal error")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")

	// Token lifecycle errors. ErrTokenExpired is internal detail; the
	// service layer collapses it into ErrInvalidToken before it reaches
	// a caller.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
