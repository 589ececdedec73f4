package profile

import (
	"context"
	"sync"
	"time"

	"github.com/samdwyer/xueba/internal/entity"
)

// MemoryRepository keeps accounts in a map. Used by tests and the memory storage driver.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
	now      func() time.Time
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[string]Account),
		now:      time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid := acct.Profile.UID
	if _, ok := r.accounts[uid]; ok {
		return ErrAlreadyExists
	}
	now := r.now().UTC()
	acct.Profile = acct.Profile.Clone()
	acct.CreatedAt, acct.UpdatedAt = now, now
	r.accounts[uid] = acct
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, uid string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[uid]
	if !ok {
		return Account{}, ErrNotFound
	}
	acct.Profile = acct.Profile.Clone()
	return acct, nil
}

func (r *MemoryRepository) Update(_ context.Context, p *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[p.UID]
	if !ok {
		return ErrNotFound
	}
	acct.Profile = p.Clone()
	acct.UpdatedAt = r.now().UTC()
	r.accounts[p.UID] = acct
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
