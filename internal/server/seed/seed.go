// Package seed registers the demo accounts used in development.
package seed

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
)

// DemoPassword is shared by all demo accounts.
const DemoPassword = "password123"

// Account is one demo user.
type Account struct {
	Name   string
	Email  string
	Mobile string
}

// DemoAccounts are registered by Seed in this order.
var DemoAccounts = []Account{
	{Name: "Alice Johnson", Email: "alice@example.com", Mobile: "1111111111"},
	{Name: "Bob Smith", Email: "bob@example.com", Mobile: "2222222222"},
	{Name: "Carol Davis", Email: "carol@example.com", Mobile: "3333333333"},
}

// Registrar creates users from plaintext credentials.
type Registrar interface {
	Register(ctx context.Context, name, email, mobile, password string) (models.PublicUser, error)
}

// Seeder registers DemoAccounts.
type Seeder struct {
	registrar Registrar
	logger    logging.Logger
}

func New(r Registrar, logger logging.Logger) *Seeder {
	return &Seeder{registrar: r, logger: logger.With("module", "seed")}
}

// Seed registers every demo account. Accounts that already exist are
// skipped; any other failure aborts.
func (s *Seeder) Seed(ctx context.Context) error {
	for _, a := range DemoAccounts {
		u, err := s.registrar.Register(ctx, a.Name, a.Email, a.Mobile, DemoPassword)
		if err != nil {
			if errors.Is(err, common.ErrDuplicateIdentity) {
				s.logger.Warn(ctx, "demo user already registered", "email", a.Email)
				continue
			}
			return err
		}
		s.logger.Info(ctx, "demo user registered", "user_id", u.ID, "email", u.Email)
	}
	return nil
}
