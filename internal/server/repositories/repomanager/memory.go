package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophrelay/internal/dbx"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/mailbox"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/users"
)

// MemoryRepositoryManager owns one instance of each in-memory repository and
// returns the same instance on every call.
type MemoryRepositoryManager struct {
	users         *users.MemoryRepository
	mailbox       *mailbox.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		mailbox:       mailbox.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
	}
}

// RunMigrations is a no-op: there is no schema.
func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *MemoryRepositoryManager) Mailbox(dbx.DBTX) mailbox.Repository { return m.mailbox }

func (m *MemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens
}
