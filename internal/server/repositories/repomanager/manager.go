// Package repomanager vends repository implementations bound to a database
// handle or transaction, plus the schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/akarpov87/authkeeper/internal/dbx"
	"github.com/akarpov87/authkeeper/internal/server/repositories/accounts"
	"github.com/akarpov87/authkeeper/internal/server/repositories/loginevents"
	"github.com/akarpov87/authkeeper/internal/server/repositories/revokedtokens"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	LoginEvents(db dbx.DBTX) loginevents.Repository
	RevokedTokens(db dbx.DBTX) revokedtokens.Repository
}
