package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/consentkeeper/internal/dbx"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/consents"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/templates"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Templates(db dbx.DBTX) templates.Repository
	Consents(db dbx.DBTX) consents.Repository
}
