package loginevents

import (
	"context"
	"fmt"

	"github.com/akarpov87/authkeeper/internal/dbx"
	"github.com/akarpov87/authkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, accountID int64, clientDescriptor string) error {
	query := `
		INSERT INTO login_events (account_id, client_descriptor)
		VALUES ($1, $2)
	`
	if _, err := r.db.ExecContext(ctx, query, accountID, clientDescriptor); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID int64) ([]models.LoginEvent, error) {
	query := `
		SELECT id, account_id, client_descriptor, occurred_at
		FROM login_events
		WHERE account_id = $1
		ORDER BY occurred_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var events []models.LoginEvent
	for rows.Next() {
		var e models.LoginEvent
		if err := rows.Scan(&e.ID, &e.AccountID, &e.ClientDescriptor, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return events, nil
}
