package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository/dao"
)

// ErrPartialTransfer means one of the writes of a transfer failed. The
// enclosing transaction is rolled back, but callers must treat it as an
// integrity fault.
var ErrPartialTransfer = errors.New("partial transfer failure")

// TransferTx is the view of the store a purchase gets while it holds its
// locks. Reads lock the returned records until the transaction ends.
type TransferTx interface {
	LockItem(id uint) (domain.Item, error)
	LockAccounts(ids ...uint) (map[uint]domain.Account, error)
	WriteBalance(account domain.Account) error
	WriteOwner(item domain.Item) error
}

type TransferDAO interface {
	Transact(ctx context.Context, fn func(tx *dao.TransferTx) error) error
	ReadSnapshot(ctx context.Context, fn func(accounts *dao.AccountDAO, items *dao.ItemDAO) error) error
}

type TransferRepository struct {
	dao TransferDAO
}

func NewTransferRepository(dao TransferDAO) *TransferRepository {
	return &TransferRepository{
		dao: dao,
	}
}

func (r *TransferRepository) Atomically(ctx context.Context, fn func(tx TransferTx) error) error {
	return r.dao.Transact(ctx, func(tx *dao.TransferTx) error {
		return fn(&gormTransferTx{tx: tx})
	})
}

// Snapshot reads every account and every item, owners included, as of one
// point in time.
func (r *TransferRepository) Snapshot(ctx context.Context) ([]domain.Account, []domain.Item, error) {
	var (
		accounts []domain.Account
		items    []domain.Item
	)

	err := r.dao.ReadSnapshot(ctx, func(accountDAO *dao.AccountDAO, itemDAO *dao.ItemDAO) error {
		var err error
		if accounts, err = NewAccountRepository(accountDAO).FindAll(ctx); err != nil {
			return err
		}
		items, err = NewItemRepository(itemDAO).ListAll(ctx, true)

		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("r.dao.ReadSnapshot -> %w", err)
	}

	return accounts, items, nil
}

func (r *TransferRepository) SnapshotAccount(ctx context.Context, id uint) (domain.Account, []domain.Item, error) {
	var (
		account domain.Account
		owned   []domain.Item
	)

	err := r.dao.ReadSnapshot(ctx, func(accountDAO *dao.AccountDAO, itemDAO *dao.ItemDAO) error {
		var err error
		if account, err = NewAccountRepository(accountDAO).FindByID(ctx, id); err != nil {
			return err
		}
		owned, err = NewItemRepository(itemDAO).FindByOwner(ctx, id)

		return err
	})
	if err != nil {
		return domain.Account{}, nil, fmt.Errorf("r.dao.ReadSnapshot -> %w", err)
	}

	return account, owned, nil
}

type gormTransferTx struct {
	tx *dao.TransferTx
}

func (t *gormTransferTx) LockItem(id uint) (domain.Item, error) {
	item, err := t.tx.LockItem(id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("t.tx.LockItem -> %w", err)
	}

	return itemDaoToDomain(item), nil
}

func (t *gormTransferTx) LockAccounts(ids ...uint) (map[uint]domain.Account, error) {
	accounts, err := t.tx.LockAccounts(ids)
	if err != nil {
		return nil, fmt.Errorf("t.tx.LockAccounts -> %w", err)
	}

	locked := make(map[uint]domain.Account, len(accounts))
	for _, a := range accounts {
		locked[a.ID] = accountDaoToDomain(a)
	}

	return locked, nil
}

func (t *gormTransferTx) WriteBalance(account domain.Account) error {
	if err := t.tx.UpdateBalance(account.ID, account.Balance); err != nil {
		return fmt.Errorf("%w: account %d -> %w", ErrPartialTransfer, account.ID, err)
	}

	return nil
}

func (t *gormTransferTx) WriteOwner(item domain.Item) error {
	if err := t.tx.UpdateOwner(item.ID, item.OwnerID); err != nil {
		return fmt.Errorf("%w: item %d -> %w", ErrPartialTransfer, item.ID, err)
	}

	return nil
}
