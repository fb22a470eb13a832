// Package memstore keeps accounts and items in process memory. It has no
// multi-record transactions, so transfers take per-record locks in a fixed
// order (the item first, then accounts by ascending id) and apply their
// writes in one step under the store lock.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

type Store struct {
	// mu guards the maps and makes a committed transfer visible at once.
	mu       sync.RWMutex
	accounts map[uint]domain.Account
	items    map[uint]domain.Item

	nextAccountID uint
	nextItemID    uint

	accountLocks *lockTable
	itemLocks    *lockTable

	now func() time.Time
}

func New() *Store {
	return &Store{
		accounts:     make(map[uint]domain.Account),
		items:        make(map[uint]domain.Item),
		accountLocks: newLockTable(),
		itemLocks:    newLockTable(),
		now:          time.Now,
	}
}

func (s *Store) Accounts() *AccountRepository {
	return &AccountRepository{s: s}
}

func (s *Store) Items() *ItemRepository {
	return &ItemRepository{s: s}
}

func (s *Store) Transfers() *TransferRepository {
	return &TransferRepository{s: s}
}

// TotalBalance sums every account balance in one consistent read.
func (s *Store) TotalBalance() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, a := range s.accounts {
		total += a.Balance
	}

	return total
}

// allAccounts expects s.mu to be held.
func (s *Store) allAccounts() []domain.Account {
	accounts := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	return accounts
}

// allItems expects s.mu to be held.
func (s *Store) allItems(includeOwner bool) []domain.Item {
	items := make([]domain.Item, 0, len(s.items))
	for _, it := range s.items {
		if !includeOwner {
			it = it.Public()
		}
		items = append(items, it)
	}
	sortItems(items)

	return items
}

// ownedBy expects s.mu to be held.
func (s *Store) ownedBy(ownerID uint) []domain.Item {
	var items []domain.Item
	for _, it := range s.items {
		if it.OwnedBy(ownerID) {
			items = append(items, it)
		}
	}
	sortItems(items)

	return items
}

// lockTable hands out one mutex per record id. Ids are never reused, so
// entries are kept for the life of the store.
type lockTable struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[uint]*sync.Mutex)}
}

func (t *lockTable) get(id uint) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.locks[id]
	if !ok {
		m = &sync.Mutex{}
		t.locks[id] = m
	}

	return m
}

func sortedIDs(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}
