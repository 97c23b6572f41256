package revokedtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/akarpov87/authkeeper/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX. The unique
// constraint on token makes concurrent revocation of the same token safe:
// both writers succeed, one row lands.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, token string, accountID int64, expires time.Time) error {
	if !expires.After(time.Now()) {
		// Already expired, nothing to track.
		return nil
	}

	query := `
		INSERT INTO revoked_tokens (token, account_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, token, accountID, expires); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM revoked_tokens WHERE token = $1
		)
	`
	var revoked bool
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&revoked); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return revoked, nil
}
