package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository"
)

type ItemRepository struct {
	s *Store
}

func (r *ItemRepository) Create(_ context.Context, item domain.Item) (domain.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[item.OwnerID]; !ok {
		return domain.Item{}, fmt.Errorf("memstore.Create -> %w", repository.ErrAccountNotFound)
	}

	r.s.nextItemID++
	now := r.s.now()
	item.ID = r.s.nextItemID
	item.CreatedAt = now
	item.UpdatedAt = now
	r.s.items[item.ID] = item

	return item, nil
}

func (r *ItemRepository) FindByID(_ context.Context, id uint) (domain.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	it, ok := r.s.items[id]
	if !ok {
		return domain.Item{}, fmt.Errorf("memstore.FindByID -> %w", repository.ErrItemNotFound)
	}

	return it, nil
}

func (r *ItemRepository) ListAll(_ context.Context, includeOwner bool) ([]domain.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.allItems(includeOwner), nil
}

func (r *ItemRepository) FindByOwner(_ context.Context, ownerID uint) ([]domain.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.ownedBy(ownerID), nil
}

func (r *ItemRepository) Save(_ context.Context, item domain.Item) (domain.Item, error) {
	lock := r.s.itemLocks.get(item.ID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.items[item.ID]
	if !ok {
		return domain.Item{}, fmt.Errorf("memstore.Save -> %w", repository.ErrItemNotFound)
	}
	if _, ok := r.s.accounts[item.OwnerID]; !ok {
		return domain.Item{}, fmt.Errorf("memstore.Save -> %w", repository.ErrAccountNotFound)
	}

	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = r.s.now()
	r.s.items[item.ID] = item

	return item, nil
}

// DeleteOwned holds the item lock across the ownership check, so it waits
// for any transfer of the item to finish and sees its result.
func (r *ItemRepository) DeleteOwned(_ context.Context, id, ownerID uint) (domain.Item, error) {
	lock := r.s.itemLocks.get(id)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	it, ok := r.s.items[id]
	if !ok {
		return domain.Item{}, fmt.Errorf("memstore.DeleteOwned -> %w", repository.ErrItemNotFound)
	}
	if !it.OwnedBy(ownerID) {
		return domain.Item{}, fmt.Errorf("memstore.DeleteOwned -> %w", repository.ErrNotItemOwner)
	}
	delete(r.s.items, id)

	return it, nil
}

func (r *ItemRepository) DeleteByOwner(_ context.Context, ownerID uint) error {
	lock := r.s.accountLocks.get(ownerID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, it := range r.s.items {
		if it.OwnedBy(ownerID) {
			delete(r.s.items, id)
		}
	}

	return nil
}

func sortItems(items []domain.Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
