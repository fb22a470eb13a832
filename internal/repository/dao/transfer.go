package dao

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoRowsAffected = errors.New("no rows affected")

type TransferDAO struct {
	db *gorm.DB
}

func NewTransferDAO(db *gorm.DB) *TransferDAO {
	return &TransferDAO{
		db: db,
	}
}

// Transact runs fn inside one database transaction. fn returning an error
// rolls everything back.
func (d *TransferDAO) Transact(ctx context.Context, fn func(tx *TransferTx) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TransferTx{db: tx})
	})
}

// ReadSnapshot runs fn inside one read-only repeatable read transaction, so
// every read made through the given DAOs sees the same committed state.
func (d *TransferDAO) ReadSnapshot(ctx context.Context, fn func(accounts *AccountDAO, items *ItemDAO) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewAccountDAO(tx), NewItemDAO(tx))
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

// TransferTx locks rows with SELECT ... FOR UPDATE. Items are locked before
// accounts and accounts in ascending id order, so two transfers never wait
// on each other in a cycle.
type TransferTx struct {
	db *gorm.DB
}

func (t *TransferTx) forUpdate() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *TransferTx) LockItem(id uint) (Item, error) {
	var item Item

	result := t.forUpdate().First(&item, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Item{}, ErrItemNotFound
		}

		return Item{}, result.Error
	}

	return item, nil
}

// LockAccounts returns the accounts that exist among ids. Missing ids are
// simply absent from the result.
func (t *TransferTx) LockAccounts(ids []uint) ([]Account, error) {
	ids = uniqueSorted(ids)

	var accounts []Account
	if err := t.forUpdate().Where("id IN ?", ids).Order("id").Find(&accounts).Error; err != nil {
		return nil, err
	}

	return accounts, nil
}

func (t *TransferTx) UpdateBalance(accountID uint, balance int64) error {
	result := t.db.Model(&Account{ID: accountID}).Update("balance", balance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return ErrNoRowsAffected
	}

	return nil
}

func (t *TransferTx) UpdateOwner(itemID, ownerID uint) error {
	result := t.db.Model(&Item{ID: itemID}).Update("owner_id", ownerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return ErrNoRowsAffected
	}

	return nil
}

func uniqueSorted(ids []uint) []uint {
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
