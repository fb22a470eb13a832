package memstore

import (
	"context"
	"fmt"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository"
)

type AccountRepository struct {
	s *Store
}

func (r *AccountRepository) Create(_ context.Context, account domain.Account) (domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.accounts {
		if a.UserName == account.UserName {
			return domain.Account{}, fmt.Errorf("memstore.Create -> %w", repository.ErrUserNameExists)
		}
	}

	r.s.nextAccountID++
	now := r.s.now()
	account.ID = r.s.nextAccountID
	account.CreatedAt = now
	account.UpdatedAt = now
	r.s.accounts[account.ID] = account

	return account, nil
}

func (r *AccountRepository) FindByID(_ context.Context, id uint) (domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return domain.Account{}, fmt.Errorf("memstore.FindByID -> %w", repository.ErrAccountNotFound)
	}

	return a, nil
}

func (r *AccountRepository) FindByUserName(_ context.Context, userName string) (domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if a.UserName == userName {
			return a, nil
		}
	}

	return domain.Account{}, fmt.Errorf("memstore.FindByUserName -> %w", repository.ErrAccountNotFound)
}

func (r *AccountRepository) Save(_ context.Context, account domain.Account) (domain.Account, error) {
	lock := r.s.accountLocks.get(account.ID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.accounts[account.ID]
	if !ok {
		return domain.Account{}, fmt.Errorf("memstore.Save -> %w", repository.ErrAccountNotFound)
	}
	for _, a := range r.s.accounts {
		if a.ID != account.ID && a.UserName == account.UserName {
			return domain.Account{}, fmt.Errorf("memstore.Save -> %w", repository.ErrUserNameExists)
		}
	}

	account.CreatedAt = existing.CreatedAt
	account.UpdatedAt = r.s.now()
	r.s.accounts[account.ID] = account

	return account, nil
}

// Delete removes the account and the items it owns. Holding the account lock
// is enough to keep transfers away from those items: every transfer that
// moves an item out of or into this account locks the account too.
func (r *AccountRepository) Delete(_ context.Context, id uint) error {
	lock := r.s.accountLocks.get(id)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[id]; !ok {
		return fmt.Errorf("memstore.Delete -> %w", repository.ErrAccountNotFound)
	}

	delete(r.s.accounts, id)
	for itemID, it := range r.s.items {
		if it.OwnerID == id {
			delete(r.s.items, itemID)
		}
	}

	return nil
}
