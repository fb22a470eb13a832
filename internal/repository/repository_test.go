package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository/dao"
)

type repos struct {
	accounts  *AccountRepository
	items     *ItemRepository
	transfers *TransferRepository
}

func newRepos(t *testing.T) repos {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repo.db")+"?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, dao.InitTables(db))

	return repos{
		accounts:  NewAccountRepository(dao.NewAccountDAO(db)),
		items:     NewItemRepository(dao.NewItemDAO(db)),
		transfers: NewTransferRepository(dao.NewTransferDAO(db)),
	}
}

func TestAccountRepository(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	alice, err := r.accounts.Create(ctx, domain.Account{Name: "Alice", UserName: "alice", Password: "hash", Balance: 100})
	require.NoError(t, err)
	assert.NotZero(t, alice.ID)
	assert.Equal(t, "hash", alice.Password)

	_, err = r.accounts.Create(ctx, domain.Account{Name: "Alice 2", UserName: "alice", Password: "hash"})
	assert.ErrorIs(t, err, ErrUserNameExists)

	found, err := r.accounts.FindByUserName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	found.Balance = 60
	saved, err := r.accounts.Save(ctx, found)
	require.NoError(t, err)
	assert.Equal(t, int64(60), saved.Balance)

	all, err := r.accounts.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, r.accounts.Delete(ctx, alice.ID))
	_, err = r.accounts.FindByID(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestItemRepository(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	alice, err := r.accounts.Create(ctx, domain.Account{Name: "Alice", UserName: "alice", Password: "hash"})
	require.NoError(t, err)
	bob, err := r.accounts.Create(ctx, domain.Account{Name: "Bob", UserName: "bob", Password: "hash"})
	require.NoError(t, err)

	lamp, err := r.items.Create(ctx, domain.Item{Name: "lamp", Price: 10, OwnerID: alice.ID})
	require.NoError(t, err)
	_, err = r.items.Create(ctx, domain.Item{Name: "desk", Price: 30, OwnerID: bob.ID})
	require.NoError(t, err)

	_, err = r.items.Create(ctx, domain.Item{Name: "orphan", Price: 1, OwnerID: 999})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	public, err := r.items.ListAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, public, 2)
	for _, it := range public {
		assert.Zero(t, it.OwnerID)
	}

	byOwner, err := r.items.FindByOwners(ctx, []uint{alice.ID, bob.ID})
	require.NoError(t, err)
	require.Len(t, byOwner[alice.ID], 1)
	assert.Equal(t, lamp.ID, byOwner[alice.ID][0].ID)
	assert.Len(t, byOwner[bob.ID], 1)

	owned, err := r.items.FindByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	require.NoError(t, r.items.DeleteByOwner(ctx, bob.ID))
	owned, err = r.items.FindByOwner(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)

	_, err = r.items.DeleteOwned(ctx, lamp.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotItemOwner)

	deleted, err := r.items.DeleteOwned(ctx, lamp.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "lamp", deleted.Name)
	_, err = r.items.FindByID(ctx, lamp.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = r.items.DeleteOwned(ctx, lamp.ID, alice.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestTransferRepository_Snapshot(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	seller, err := r.accounts.Create(ctx, domain.Account{Name: "Seller", UserName: "seller", Password: "hash"})
	require.NoError(t, err)
	buyer, err := r.accounts.Create(ctx, domain.Account{Name: "Buyer", UserName: "buyer", Password: "hash", Balance: 40})
	require.NoError(t, err)
	lamp, err := r.items.Create(ctx, domain.Item{Name: "lamp", Price: 25, OwnerID: seller.ID})
	require.NoError(t, err)

	accounts, items, err := r.transfers.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, seller.ID, accounts[0].ID)
	assert.Equal(t, buyer.ID, accounts[1].ID)
	assert.Equal(t, int64(40), accounts[1].Balance)
	require.Len(t, items, 1)
	assert.Equal(t, lamp.ID, items[0].ID)
	assert.Equal(t, seller.ID, items[0].OwnerID)

	account, owned, err := r.transfers.SnapshotAccount(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, "seller", account.UserName)
	require.Len(t, owned, 1)
	assert.Equal(t, lamp.ID, owned[0].ID)

	_, _, err = r.transfers.SnapshotAccount(ctx, 999)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestTransferRepository_Atomically(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	seller, err := r.accounts.Create(ctx, domain.Account{Name: "Seller", UserName: "seller", Password: "hash"})
	require.NoError(t, err)
	buyer, err := r.accounts.Create(ctx, domain.Account{Name: "Buyer", UserName: "buyer", Password: "hash", Balance: 40})
	require.NoError(t, err)
	lamp, err := r.items.Create(ctx, domain.Item{Name: "lamp", Price: 25, OwnerID: seller.ID})
	require.NoError(t, err)

	err = r.transfers.Atomically(ctx, func(tx TransferTx) error {
		item, err := tx.LockItem(lamp.ID)
		if err != nil {
			return err
		}
		locked, err := tx.LockAccounts(buyer.ID, item.OwnerID)
		if err != nil {
			return err
		}
		require.Len(t, locked, 2)

		b, o, it, err := domain.Settle(locked[buyer.ID], locked[item.OwnerID], item)
		if err != nil {
			return err
		}
		if err := tx.WriteBalance(b); err != nil {
			return err
		}
		if err := tx.WriteBalance(o); err != nil {
			return err
		}
		return tx.WriteOwner(it)
	})
	require.NoError(t, err)

	gotBuyer, err := r.accounts.FindByID(ctx, buyer.ID)
	require.NoError(t, err)
	gotSeller, err := r.accounts.FindByID(ctx, seller.ID)
	require.NoError(t, err)
	gotLamp, err := r.items.FindByID(ctx, lamp.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(15), gotBuyer.Balance)
	assert.Equal(t, int64(25), gotSeller.Balance)
	assert.Equal(t, buyer.ID, gotLamp.OwnerID)
}

func TestTransferRepository_FailedWriteIsPartialTransfer(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	buyer, err := r.accounts.Create(ctx, domain.Account{Name: "Buyer", UserName: "buyer", Password: "hash", Balance: 40})
	require.NoError(t, err)

	err = r.transfers.Atomically(ctx, func(tx TransferTx) error {
		if err := tx.WriteBalance(domain.Account{ID: buyer.ID, Balance: 0}); err != nil {
			return err
		}
		return tx.WriteOwner(domain.Item{ID: 404, OwnerID: buyer.ID})
	})
	require.ErrorIs(t, err, ErrPartialTransfer)
	assert.ErrorIs(t, err, dao.ErrNoRowsAffected)

	got, err := r.accounts.FindByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.Balance, "balance write must be rolled back")
}

type failingItemDAO struct {
	ItemDAO
	err error
}

func (d failingItemDAO) FindAll(context.Context, bool) ([]dao.Item, error) {
	return nil, d.err
}

func TestItemRepository_WrapsDAOErrors(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewItemRepository(failingItemDAO{err: boom})

	_, err := r.ListAll(context.Background(), true)

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "r.dao.FindAll")
}
