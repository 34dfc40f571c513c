// Package directory owns the canonical user records: registration, profile
// changes, credential-key lookup and search. Email and mobile are normalized
// before they are compared or stored.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/users"
	"github.com/google/uuid"
)

// OnlineChecker answers whether a user currently has a live binding.
type OnlineChecker interface {
	IsOnline(userID string) bool
}

// Directory is the user registry of the relay.
type Directory struct {
	users  users.Repository
	online OnlineChecker
	logger logging.Logger
	now    func() time.Time
}

// New builds a Directory over repo. online annotates search and list
// results; nil reports everyone offline.
func New(repo users.Repository, online OnlineChecker, logger logging.Logger) *Directory {
	return &Directory{
		users:  repo,
		online: online,
		logger: logger.With("module", "directory"),
		now:    time.Now,
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// NormalizeMobile trims a mobile number.
func NormalizeMobile(mobile string) string { return strings.TrimSpace(mobile) }

// Register creates a user. passwordHash is stored as given.
func (d *Directory) Register(ctx context.Context, name, email, mobile string, passwordHash []byte) (models.PublicUser, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	mobile = NormalizeMobile(mobile)

	if name == "" || email == "" || mobile == "" {
		return models.PublicUser{}, fmt.Errorf("%w: name, email and mobile are required", common.ErrorValidation)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Mobile:       mobile,
		PasswordHash: passwordHash,
		CreatedAt:    d.now(),
	}

	created, err := d.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			return models.PublicUser{}, err
		}
		return models.PublicUser{}, fmt.Errorf("error creating user: %w", err)
	}

	d.logger.Info(ctx, "user registered", "user_id", created.ID, "email", created.Email)
	return created.Public(), nil
}

// UpdateProfile changes name and/or email. A blank name is ignored; an email
// equal to the current one (after normalization) is not a change.
func (d *Directory) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (models.PublicUser, error) {
	var normalized models.ProfileUpdate
	if upd.Name != nil {
		if name := strings.TrimSpace(*upd.Name); name != "" {
			normalized.Name = &name
		}
	}
	if upd.Email != nil {
		if email := NormalizeEmail(*upd.Email); email != "" {
			normalized.Email = &email
		}
	}

	updated, err := d.users.UpdateProfile(ctx, userID, normalized, d.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrDuplicateIdentity) {
			return models.PublicUser{}, err
		}
		return models.PublicUser{}, fmt.Errorf("error updating user: %w", err)
	}

	d.logger.Info(ctx, "profile updated", "user_id", userID, "email", updated.Email)
	return d.annotate(updated), nil
}

// AuthenticateLookup resolves an email or mobile to a user id.
func (d *Directory) AuthenticateLookup(ctx context.Context, emailOrMobile string) (string, error) {
	candidates := []string{NormalizeEmail(emailOrMobile)}
	if m := NormalizeMobile(emailOrMobile); m != candidates[0] {
		candidates = append(candidates, m)
	}

	for _, key := range candidates {
		if key == "" {
			continue
		}
		id, err := d.users.GetIDByKey(ctx, key)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return "", fmt.Errorf("error looking up user: %w", err)
		}
	}
	return "", common.ErrorNotFound
}

// Search returns users whose name, email or mobile contains term,
// case-insensitively, in directory order. An empty term matches everyone.
// excludeUserID, when non-empty, is left out.
func (d *Directory) Search(ctx context.Context, term, excludeUserID string) ([]models.PublicUser, error) {
	all, err := d.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	term = strings.ToLower(strings.TrimSpace(term))
	results := make([]models.PublicUser, 0, len(all))
	for _, u := range all {
		if excludeUserID != "" && u.ID == excludeUserID {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(u.Name), term) &&
			!strings.Contains(strings.ToLower(u.Email), term) &&
			!strings.Contains(u.Mobile, term) {
			continue
		}
		results = append(results, d.annotate(u))
	}

	d.logger.Debug(ctx, "search", "term", term, "requester_id", excludeUserID, "count", len(results))
	return results, nil
}

// Get returns the full record, credential included.
func (d *Directory) Get(ctx context.Context, userID string) (*models.User, error) {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error reading user: %w", err)
	}
	return u, nil
}

// Exists reports whether userID is registered.
func (d *Directory) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := d.Get(ctx, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return false, err
}

// List returns every user with its online flag.
func (d *Directory) List(ctx context.Context) ([]models.PublicUser, error) {
	return d.Search(ctx, "", "")
}

// Count returns the number of registered users.
func (d *Directory) Count(ctx context.Context) (int, error) {
	return d.users.Count(ctx)
}

// Reset removes every user.
func (d *Directory) Reset(ctx context.Context) error {
	return d.users.Reset(ctx)
}

func (d *Directory) annotate(u *models.User) models.PublicUser {
	p := u.Public()
	if d.online != nil {
		p.IsOnline = d.online.IsOnline(u.ID)
	}
	return p
}
