// Package services contains application services for the relay CLI.
// This file defines the authentication service: register, login, session
// restore across runs, profile updates and logout housekeeping.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophrelay/internal/client/client"
	"github.com/dmitrijs2005/gophrelay/internal/client/models"
	"github.com/dmitrijs2005/gophrelay/internal/client/repositories/messages"
	"github.com/dmitrijs2005/gophrelay/internal/client/repositories/session"
	"github.com/dmitrijs2005/gophrelay/internal/dbx"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	pb "github.com/dmitrijs2005/gophrelay/internal/proto"
)

// AuthService defines authentication operations for the CLI.
type AuthService interface {
	Register(ctx context.Context, name, email, mobile, password string) (pb.User, error)
	// Login authenticates and persists the session for later runs.
	Login(ctx context.Context, emailOrMobile, password string) (*models.Session, error)
	// Restore reloads the persisted session, if any, into the API client.
	Restore(ctx context.Context) (*models.Session, error)
	// Session returns the active session with the current tokens, or nil.
	Session(ctx context.Context) (*models.Session, error)
	UpdateProfile(ctx context.Context, name, email *string) (pb.User, error)
	// Logout forgets the session and wipes the local message log.
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	logger logging.Logger
}

// NewAuthService constructs an AuthService bound to the given API client and
// DB. Tokens rotated by the client are written back to the stored session.
func NewAuthService(c client.Client, db *sql.DB, logger logging.Logger) AuthService {
	a := &authService{client: c, db: db, logger: logger.With("module", "auth")}
	c.OnTokensRefreshed(a.persistTokens)
	return a
}

func (a *authService) sessions(db dbx.DBTX) session.Repository {
	return session.NewSQLiteRepository(db)
}

func (a *authService) Register(ctx context.Context, name, email, mobile, password string) (pb.User, error) {
	return a.client.Register(ctx, name, email, mobile, password)
}

func (a *authService) Login(ctx context.Context, emailOrMobile, password string) (*models.Session, error) {
	resp, err := a.client.Login(ctx, emailOrMobile, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	s := models.Session{
		UserID:       resp.User.ID,
		UserName:     resp.User.Name,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		prev, err := a.sessions(tx).Load(ctx)
		if err != nil {
			return err
		}
		// The message log belongs to one account.
		if prev != nil && prev.UserID != s.UserID {
			if err := messages.NewSQLiteRepository(tx).Clear(ctx); err != nil {
				return err
			}
		}
		return a.sessions(tx).Save(ctx, s)
	})
	if err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}

	a.logger.Info(ctx, "logged in", "user_id", s.UserID)
	return &s, nil
}

func (a *authService) Restore(ctx context.Context) (*models.Session, error) {
	s, err := a.sessions(a.db).Load(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	a.client.SetTokens(s.AccessToken, s.RefreshToken)
	return s, nil
}

func (a *authService) Session(ctx context.Context) (*models.Session, error) {
	return a.sessions(a.db).Load(ctx)
}

func (a *authService) UpdateProfile(ctx context.Context, name, email *string) (pb.User, error) {
	u, err := a.client.UpdateProfile(ctx, name, email)
	if err != nil {
		return pb.User{}, err
	}

	repo := a.sessions(a.db)
	s, err := repo.Load(ctx)
	if err != nil {
		return u, err
	}
	if s != nil && s.UserName != u.Name {
		s.UserName = u.Name
		if err := repo.Save(ctx, *s); err != nil {
			return u, err
		}
	}
	return u, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.client.SetTokens("", "")
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := a.sessions(tx).Clear(ctx); err != nil {
			return err
		}
		return messages.NewSQLiteRepository(tx).Clear(ctx)
	})
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

func (a *authService) persistTokens(accessToken, refreshToken string) {
	ctx := context.Background()
	repo := a.sessions(a.db)

	s, err := repo.Load(ctx)
	if err != nil || s == nil {
		return
	}
	s.AccessToken = accessToken
	s.RefreshToken = refreshToken
	if err := repo.Save(ctx, *s); err != nil {
		a.logger.Warn(ctx, "refreshed tokens not persisted", "error", err)
	}
}
