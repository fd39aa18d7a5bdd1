// Package cli implements the consentkeeper administration tool.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/dmitrijs2005/consentkeeper/internal/logging"
	"github.com/dmitrijs2005/consentkeeper/internal/server"
	"github.com/dmitrijs2005/consentkeeper/internal/server/config"
	"github.com/dmitrijs2005/consentkeeper/internal/server/identity"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/consentkeeper/internal/server/services"
)

const (
	CommandMigrate     = "migrate"
	CommandCreateAdmin = "create-admin"
	CommandHelp        = "help"
)

type AdminCreator interface {
	CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error)
}

type App struct {
	reader  *bufio.Reader
	out     io.Writer
	migrate func(ctx context.Context) error
	admins  AdminCreator
	db      *sql.DB
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := server.OpenDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	logger := logging.NewJSONLogger(os.Stderr, c.LogLevel)

	store := identity.NewStore(rm.Users(db), 0)

	return &App{
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		migrate: func(ctx context.Context) error { return rm.RunMigrations(ctx, db) },
		admins:  services.NewUserService(db, rm, store, c, logger),
		db:      db,
	}, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// CommandFrom returns the first known command name in args, or "" when none
// is present. Flag values never match because they are not command names.
func CommandFrom(args []string) string {
	for _, arg := range args {
		switch arg {
		case CommandMigrate, CommandCreateAdmin, CommandHelp:
			return arg
		}
	}
	return ""
}

func (a *App) Run(ctx context.Context, command string) error {
	switch command {
	case CommandMigrate:
		return a.runMigrate(ctx)
	case CommandCreateAdmin:
		return a.createAdmin(ctx)
	case CommandHelp, "":
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: consentkeeper-cli [flags] <command>")
	fmt.Fprintln(a.out, "Commands:")
	fmt.Fprintln(a.out, "  migrate        apply database migrations")
	fmt.Fprintln(a.out, "  create-admin   create an administrator account")
}

func (a *App) runMigrate(ctx context.Context) error {
	if err := a.migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintln(a.out, "Migrations applied")
	return nil
}

func (a *App) createAdmin(ctx context.Context) error {
	if err := a.migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	name, err := GetSimpleText(a.reader, "Name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.admins.CreateAdmin(ctx, name, email, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Administrator %s created with id %d\n", user.Email, user.ID)
	return nil
}
