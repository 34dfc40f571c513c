// Package repomanager vends repository implementations for the configured
// storage driver and runs schema migrations where the driver needs them.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophrelay/internal/dbx"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/mailbox"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a DBTX. Memory-backed
// managers ignore the handle, so db may be nil for them.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Mailbox(db dbx.DBTX) mailbox.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}

// Drivers understood by New.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// New returns the manager for driver.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryRepositoryManager(), nil
	case DriverPostgres:
		return NewPostgresRepositoryManager()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
