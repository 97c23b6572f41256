// Package services contains server-side business logic. This file implements
// SessionService, the authentication state machine: password verification,
// token minting, single-use refresh exchange, and revocation on logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/akarpov87/authkeeper/internal/common"
	"github.com/akarpov87/authkeeper/internal/dbx"
	"github.com/akarpov87/authkeeper/internal/server/auth"
	"github.com/akarpov87/authkeeper/internal/server/config"
	"github.com/akarpov87/authkeeper/internal/server/models"
	"github.com/akarpov87/authkeeper/internal/server/passwd"
	"github.com/akarpov87/authkeeper/internal/server/repositories/repomanager"
	"github.com/akarpov87/authkeeper/internal/server/repositories/revokedtokens"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterResult is the outcome of a successful registration: the persisted
// account and an access token bound to it.
type RegisterResult struct {
	Account     *models.Account
	AccessToken string
}

// RefreshResult is the outcome of a refresh exchange. RefreshToken is empty
// unless refresh-token reissue is enabled in config; either way the token
// that was presented is spent.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// SessionService provides the authentication operations:
//   - Register: create an account and mint a first access token
//   - Login: verify credentials, audit the login, mint a token pair
//   - Refresh: exchange a single-use refresh token for a new access token
//   - Logout: revoke a refresh token
//   - UpdatePassword / LoginHistory: account maintenance and audit reads
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	// revoked, when non-nil, overrides the manager-vended revocation store
	// (used for the Redis backend).
	revoked                      revokedtokens.Repository
	hasher                       passwd.Hasher
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	reissueRefreshToken          bool
}

// NewSessionService constructs a SessionService. revoked may be nil, in which
// case revocations go through the repository manager's store.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, revoked revokedtokens.Repository, hasher passwd.Hasher, cfg *config.Config) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		revoked:                      revoked,
		hasher:                       hasher,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		reissueRefreshToken:          cfg.ReissueRefreshToken,
	}
}

// Register creates an account for email and returns it together with an
// access token. Duplicate emails yield common.ErrEmailTaken; the token is
// minted only after the insert has committed, so a failed registration never
// leaves a token referencing a nonexistent account.
func (s *SessionService) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	repo := s.repomanager.Accounts(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrEmailTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrInternal
	}

	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, common.ErrInternal
	}

	account := &models.Account{Email: email, PasswordHash: string(hash)}
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Accounts(tx).Create(ctx, account)
		if err != nil {
			return err
		}
		account = created
		return nil
	}); err != nil {
		// Two concurrent registrations can both pass the pre-check; the
		// unique constraint settles it.
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.ErrEmailTaken
		}
		return nil, common.ErrInternal
	}

	access, err := s.generateAccessToken(account.Email)
	if err != nil {
		return nil, common.ErrInternal
	}

	return &RegisterResult{Account: account, AccessToken: access}, nil
}

// Login verifies the password for email and, on success, appends a login
// event and mints a token pair. An unknown email and a wrong password are
// indistinguishable to the caller: both return common.ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, email, password, clientDescriptor string) (*TokenPair, error) {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Burn a comparison anyway so the miss costs as much as a
			// mismatch.
			_ = s.hasher.Compare(dummyHash, []byte(password))
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrInternal
	}

	if err := s.hasher.Compare([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	if err := s.repomanager.LoginEvents(s.db).Create(ctx, account.ID, clientDescriptor); err != nil {
		return nil, common.ErrInternal
	}

	access, err := s.generateAccessToken(account.Email)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := s.generateRefreshToken(account.Email)
	if err != nil {
		return nil, common.ErrInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token. The presented
// token is spent in the process: a second exchange with the same token fails.
// Malformed, expired, mis-kinded, and already-revoked tokens all collapse
// into common.ErrInvalidToken.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	account, claims, err := s.checkRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	revoked := s.revokedRepo(s.db)
	isRevoked, err := revoked.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, common.ErrInternal
	}
	if isRevoked {
		return nil, common.ErrInvalidToken
	}

	if err := revoked.Record(ctx, refreshToken, account.ID, claims.ExpiresAt.Time); err != nil {
		return nil, common.ErrInternal
	}

	access, err := s.generateAccessToken(account.Email)
	if err != nil {
		return nil, common.ErrInternal
	}

	result := &RefreshResult{AccessToken: access}
	if s.reissueRefreshToken {
		reissued, err := s.generateRefreshToken(account.Email)
		if err != nil {
			return nil, common.ErrInternal
		}
		result.RefreshToken = reissued
	}

	return result, nil
}

// Logout revokes a refresh token. The token must still be valid; revoking it
// twice is harmless.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	account, claims, err := s.checkRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := s.revokedRepo(s.db).Record(ctx, refreshToken, account.ID, claims.ExpiresAt.Time); err != nil {
		return common.ErrInternal
	}

	return nil
}

// UpdatePassword overwrites the password hash for email. The caller is
// responsible for ensuring the requester is an authenticated session for
// that same email; this service only checks that the account exists.
func (s *SessionService) UpdatePassword(ctx context.Context, email, newPassword string) error {
	repo := s.repomanager.Accounts(s.db)

	if _, err := repo.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrAccountNotFound
		}
		return common.ErrInternal
	}

	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return common.ErrInternal
	}

	if err := repo.UpdatePasswordHash(ctx, email, string(hash)); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrAccountNotFound
		}
		return common.ErrInternal
	}

	return nil
}

// LoginHistory returns the account's login audit trail, newest first.
func (s *SessionService) LoginHistory(ctx context.Context, email string) ([]models.LoginEvent, error) {
	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAccountNotFound
		}
		return nil, common.ErrInternal
	}

	events, err := s.repomanager.LoginEvents(s.db).ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, common.ErrInternal
	}

	return events, nil
}

// --- helpers below ---

// dummyHash is a bcrypt hash of an unguessable throwaway value, compared
// against when the account does not exist.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

func (s *SessionService) generateAccessToken(email string) (string, error) {
	return auth.GenerateToken(email, auth.KindAccess, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *SessionService) generateRefreshToken(email string) (string, error) {
	return auth.GenerateToken(email, auth.KindRefresh, s.jwtSecret, s.refreshTokenValidityDuration)
}

func (s *SessionService) revokedRepo(db dbx.DBTX) revokedtokens.Repository {
	if s.revoked != nil {
		return s.revoked
	}
	return s.repomanager.RevokedTokens(db)
}

// checkRefreshToken parses and verifies a refresh token and resolves its
// account. Every defect maps to common.ErrInvalidToken, including an access
// token presented where a refresh token is expected.
func (s *SessionService) checkRefreshToken(ctx context.Context, refreshToken string) (*models.Account, *auth.Claims, error) {
	claims, err := auth.ParseToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, nil, common.ErrInvalidToken
	}
	if claims.Kind != auth.KindRefresh {
		return nil, nil, common.ErrInvalidToken
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrInvalidToken
		}
		return nil, nil, common.ErrInternal
	}

	return account, claims, nil
}
