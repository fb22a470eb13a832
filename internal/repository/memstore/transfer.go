package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository"
)

var errLockOrder = errors.New("lock acquired out of order")

type TransferRepository struct {
	s *Store
}

// Atomically runs fn with a fresh transaction. Locks taken by fn are released
// on every return path; staged writes are applied only when fn succeeds.
func (r *TransferRepository) Atomically(ctx context.Context, fn func(tx repository.TransferTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &transferTx{
		s:        r.s,
		items:    make(map[uint]*sync.Mutex),
		accounts: make(map[uint]*sync.Mutex),
		balances: make(map[uint]int64),
		owners:   make(map[uint]uint),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.commit()
}

// Snapshot reads every account and item under one read lock. Transfers
// commit under the write lock, so a snapshot never sees half of one.
func (r *TransferRepository) Snapshot(ctx context.Context) ([]domain.Account, []domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.allAccounts(), r.s.allItems(true), nil
}

func (r *TransferRepository) SnapshotAccount(ctx context.Context, id uint) (domain.Account, []domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return domain.Account{}, nil, fmt.Errorf("memstore.SnapshotAccount -> %w", repository.ErrAccountNotFound)
	}

	return a, r.s.ownedBy(id), nil
}

type transferTx struct {
	s *Store

	items    map[uint]*sync.Mutex
	accounts map[uint]*sync.Mutex
	held     []*sync.Mutex

	balances map[uint]int64
	owners   map[uint]uint
}

func (t *transferTx) acquire(m *sync.Mutex) {
	m.Lock()
	t.held = append(t.held, m)
}

func (t *transferTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

func (t *transferTx) LockItem(id uint) (domain.Item, error) {
	if _, ok := t.items[id]; !ok {
		if len(t.accounts) > 0 {
			return domain.Item{}, fmt.Errorf("item %d after accounts -> %w", id, errLockOrder)
		}
		m := t.s.itemLocks.get(id)
		t.acquire(m)
		t.items[id] = m
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	it, ok := t.s.items[id]
	if !ok {
		return domain.Item{}, fmt.Errorf("memstore.LockItem -> %w", repository.ErrItemNotFound)
	}

	return it, nil
}

func (t *transferTx) LockAccounts(ids ...uint) (map[uint]domain.Account, error) {
	ids = sortedIDs(ids)

	var highest uint
	for id := range t.accounts {
		if id > highest {
			highest = id
		}
	}
	for _, id := range ids {
		if _, ok := t.accounts[id]; ok {
			continue
		}
		if id < highest {
			return nil, fmt.Errorf("account %d after account %d -> %w", id, highest, errLockOrder)
		}
		m := t.s.accountLocks.get(id)
		t.acquire(m)
		t.accounts[id] = m
		highest = id
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	locked := make(map[uint]domain.Account, len(ids))
	for _, id := range ids {
		if a, ok := t.s.accounts[id]; ok {
			locked[id] = a
		}
	}

	return locked, nil
}

func (t *transferTx) WriteBalance(account domain.Account) error {
	if _, ok := t.accounts[account.ID]; !ok {
		return fmt.Errorf("%w: account %d is not locked", repository.ErrPartialTransfer, account.ID)
	}
	t.balances[account.ID] = account.Balance

	return nil
}

func (t *transferTx) WriteOwner(item domain.Item) error {
	if _, ok := t.items[item.ID]; !ok {
		return fmt.Errorf("%w: item %d is not locked", repository.ErrPartialTransfer, item.ID)
	}
	t.owners[item.ID] = item.OwnerID

	return nil
}

// commit applies all staged writes or none of them.
func (t *transferTx) commit() error {
	if len(t.balances) == 0 && len(t.owners) == 0 {
		return nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id := range t.balances {
		if _, ok := t.s.accounts[id]; !ok {
			return fmt.Errorf("%w: account %d vanished", repository.ErrPartialTransfer, id)
		}
	}
	for id, owner := range t.owners {
		if _, ok := t.s.items[id]; !ok {
			return fmt.Errorf("%w: item %d vanished", repository.ErrPartialTransfer, id)
		}
		if _, ok := t.s.accounts[owner]; !ok {
			return fmt.Errorf("%w: new owner %d vanished", repository.ErrPartialTransfer, owner)
		}
	}

	now := t.s.now()
	for id, balance := range t.balances {
		a := t.s.accounts[id]
		a.Balance = balance
		a.UpdatedAt = now
		t.s.accounts[id] = a
	}
	for id, owner := range t.owners {
		it := t.s.items[id]
		it.OwnerID = owner
		it.UpdatedAt = now
		t.s.items[id] = it
	}

	return nil
}
