package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/orders"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a connection or an open
// transaction, so services can run several of them in one dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Orders(db dbx.DBTX) orders.Repository
	RevokedTokens(db dbx.DBTX) revokedtokens.Repository
}
