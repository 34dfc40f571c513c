package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
)

// MemoryRepository keeps users for the lifetime of the process. Email and
// mobile share one index, so a key can belong to at most one user whichever
// field it came from.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.User
	order []string
	index map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[string]*models.User),
		index: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; ok {
		return nil, common.ErrDuplicateIdentity
	}
	if _, ok := r.index[user.Email]; ok {
		return nil, common.ErrDuplicateIdentity
	}
	if _, ok := r.index[user.Mobile]; ok || user.Email == user.Mobile {
		return nil, common.ErrDuplicateIdentity
	}

	stored := user.Clone()
	r.byID[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	r.index[stored.Email] = stored.ID
	r.index[stored.Mobile] = stored.ID

	return stored.Clone(), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u.Clone(), nil
}

func (r *MemoryRepository) GetIDByKey(_ context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.index[key]
	if !ok {
		return "", common.ErrorNotFound
	}
	return id, nil
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, id string, upd models.ProfileUpdate, at time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}

	updated := current.Clone()
	if upd.Email != nil && *upd.Email != current.Email {
		if _, taken := r.index[*upd.Email]; taken {
			return nil, common.ErrDuplicateIdentity
		}
		delete(r.index, current.Email)
		r.index[*upd.Email] = id
		updated.Email = *upd.Email
	}
	if upd.Name != nil {
		updated.Name = *upd.Name
	}
	updated.UpdatedAt = at

	r.byID[id] = updated
	return updated.Clone(), nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.User, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.byID[id].Clone())
	}
	return result, nil
}

func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func (r *MemoryRepository) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[string]*models.User)
	r.index = make(map[string]string)
	r.order = nil
	return nil
}
