// Package memory keeps admin accounts in process memory. It backs
// STORE_DRIVER=memory for local development and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/repositories"
)

// AdminRepository is a map-backed repositories.AdminRepository.
// Accounts are copied on the way in and out so callers never share state with the store.
type AdminRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*models.AdminAccount
	byUsername map[string]uuid.UUID
	now        func() time.Time
}

// NewAdminRepository creates an empty in-memory store
func NewAdminRepository() *AdminRepository {
	return &AdminRepository{
		byID:       make(map[uuid.UUID]*models.AdminAccount),
		byUsername: make(map[string]uuid.UUID),
		now:        time.Now,
	}
}

func usernameKey(username string) string {
	return strings.ToLower(username)
}

func (r *AdminRepository) Create(_ context.Context, account *models.AdminAccount) (*models.AdminAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := usernameKey(account.Username)
	if _, taken := r.byUsername[key]; taken {
		return nil, repositories.ErrConflict
	}

	stored := *account
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.byID[stored.ID] = &stored
	r.byUsername[key] = stored.ID

	out := stored
	return &out, nil
}

func (r *AdminRepository) FindByUsername(_ context.Context, username string) (*models.AdminAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[usernameKey(username)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

func (r *AdminRepository) FindByID(_ context.Context, id uuid.UUID) (*models.AdminAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *account
	return &out, nil
}

func (r *AdminRepository) UpdatePermissions(_ context.Context, id uuid.UUID, permissions models.Permissions) (*models.AdminAccount, error) {
	return r.update(id, func(a *models.AdminAccount) { a.Permissions = permissions })
}

func (r *AdminRepository) UpdateRole(_ context.Context, id uuid.UUID, role models.Role) (*models.AdminAccount, error) {
	return r.update(id, func(a *models.AdminAccount) { a.Role = role })
}

func (r *AdminRepository) update(id uuid.UUID, apply func(*models.AdminAccount)) (*models.AdminAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	apply(account)
	account.UpdatedAt = r.now()

	out := *account
	return &out, nil
}

func (r *AdminRepository) List(_ context.Context) ([]*models.AdminAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]*models.AdminAccount, 0, len(r.byID))
	for _, account := range r.byID {
		out := *account
		accounts = append(accounts, &out)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Username < accounts[j].Username
	})
	return accounts, nil
}

func (r *AdminRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

var _ repositories.AdminRepository = (*AdminRepository)(nil)
