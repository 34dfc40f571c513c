// Package services contains server-side business logic shared by the HTTP,
// websocket and gRPC surfaces. This file implements UserService, which
// handles registration, login, token refresh and profile changes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/dbx"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/config"
	"github.com/dmitrijs2005/gophrelay/internal/server/directory"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is returned by Login.
type LoginResult struct {
	TokenPair
	User models.PublicUser
}

// ProfileAnnouncer publishes profile changes to connected clients.
type ProfileAnnouncer interface {
	AnnounceProfileUpdate(ctx context.Context, user models.PublicUser) int
}

// UserService provides identity operations:
//   - Register: create users
//   - Login: verify credentials and mint tokens
//   - RefreshToken: rotate refresh tokens and mint new access tokens
//   - UpdateProfile: change name or email and announce it
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	directory                    *directory.Directory
	provider                     *auth.Provider
	announcer                    ProfileAnnouncer
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
}

// NewUserService constructs a UserService. db may be nil for the memory driver.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, dir *directory.Directory, provider *auth.Provider,
	announcer ProfileAnnouncer, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		directory:                    dir,
		provider:                     provider,
		announcer:                    announcer,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		logger:                       logger.With("module", "users"),
	}
}

// Register validates input, hashes the password and creates the user.
func (s *UserService) Register(ctx context.Context, name, email, mobile, password string) (models.PublicUser, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(mobile) == "" || password == "" {
		return models.PublicUser{}, fmt.Errorf("%w: All fields are required: name, email, mobile, password", common.ErrorValidation)
	}

	hash, err := s.provider.HashSecret(password)
	if err != nil {
		return models.PublicUser{}, err
	}
	return s.directory.Register(ctx, name, email, mobile, hash)
}

// Login resolves emailOrMobile, checks password and returns a fresh token
// pair. Unknown keys and wrong passwords both yield ErrAuthFailed.
func (s *UserService) Login(ctx context.Context, emailOrMobile, password string) (*LoginResult, error) {
	if strings.TrimSpace(emailOrMobile) == "" || password == "" {
		return nil, fmt.Errorf("%w: email or mobile and password are required", common.ErrorValidation)
	}

	userID, err := s.directory.AuthenticateLookup(ctx, emailOrMobile)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "login rejected", "reason", "unknown key")
			return nil, common.ErrAuthFailed
		}
		return nil, common.ErrorInternal
	}

	user, err := s.directory.Get(ctx, userID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	principal, err := s.provider.Authenticate(user, password)
	if err != nil {
		s.logger.Info(ctx, "login rejected", "user_id", userID, "reason", "bad credentials")
		return nil, err
	}

	var pair *TokenPair
	if err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, principal, tx)
		return genErr
	}); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", userID)
	return &LoginResult{TokenPair: *pair, User: user.Public()}, nil
}

// RefreshToken redeems a refresh token and returns a fresh TokenPair.
// Redeeming consumes the token, so it works once; an expired token is
// consumed too and yields ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var (
		pair    *TokenPair
		expired bool
	)
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error redeeming refresh token: %w", err)
		}
		if token.Expired(time.Now()) {
			expired = true
			return nil
		}

		user, err := s.directory.Get(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return common.ErrorInternal
		}

		pair, err = s.generateTokenPair(ctx, auth.Principal{UserID: user.ID, Email: user.Email}, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		s.logger.Info(ctx, "refresh rejected", "reason", "expired")
		return nil, common.ErrRefreshTokenExpired
	}
	return pair, nil
}

// VerifyToken validates an access token and returns its principal.
func (s *UserService) VerifyToken(token string) (auth.Principal, error) {
	return s.provider.VerifyToken(token)
}

// UpdateProfile changes the caller's name and/or email and announces the
// change to every connected client.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (models.PublicUser, error) {
	if blank(upd.Name) && blank(upd.Email) {
		return models.PublicUser{}, fmt.Errorf("%w: At least one field (name or email) is required for update", common.ErrorValidation)
	}

	user, err := s.directory.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return models.PublicUser{}, err
	}

	n := s.announcer.AnnounceProfileUpdate(ctx, user)
	s.logger.Debug(ctx, "profile update announced", "user_id", userID, "count", n)
	return user, nil
}

// Search returns users matching term, excluding the requester.
func (s *UserService) Search(ctx context.Context, term, requesterID string) ([]models.PublicUser, error) {
	return s.directory.Search(ctx, term, requesterID)
}

// --- helpers below ---

func blank(p *string) bool { return p == nil || strings.TrimSpace(*p) == "" }

// withTx runs fn in a transaction when a database is configured and directly
// otherwise.
func (s *UserService) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return dbx.WithTx(ctx, s.db, nil, fn)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, principal auth.Principal, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.provider.IssueToken(principal)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	token := models.RefreshToken{
		UserID:    principal.UserID,
		Token:     refresh,
		ExpiresAt: time.Now().Add(s.refreshTokenValidityDuration),
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, token); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
