package api

import (
	"context"

	"gorm.io/gorm"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository/dao"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository/memstore"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/service"
)

type AccountStore interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	FindByID(ctx context.Context, id uint) (domain.Account, error)
	FindByUserName(ctx context.Context, userName string) (domain.Account, error)
	Delete(ctx context.Context, id uint) error
}

type ItemStore interface {
	Create(ctx context.Context, item domain.Item) (domain.Item, error)
	ListAll(ctx context.Context, includeOwner bool) ([]domain.Item, error)
	FindByOwner(ctx context.Context, ownerID uint) ([]domain.Item, error)
	DeleteOwned(ctx context.Context, id, ownerID uint) (domain.Item, error)
}

// Stores holds one storage backend's repositories.
type Stores struct {
	Accounts  AccountStore
	Items     ItemStore
	Transfers service.TransferRepository
	Snapshots service.SnapshotRepository
}

// NewGormStores serves postgres and sqlite alike.
func NewGormStores(db *gorm.DB) Stores {
	transfers := repository.NewTransferRepository(dao.NewTransferDAO(db))

	return Stores{
		Accounts:  repository.NewAccountRepository(dao.NewAccountDAO(db)),
		Items:     repository.NewItemRepository(dao.NewItemDAO(db)),
		Transfers: transfers,
		Snapshots: transfers,
	}
}

func NewMemoryStores(store *memstore.Store) Stores {
	return Stores{
		Accounts:  store.Accounts(),
		Items:     store.Items(),
		Transfers: store.Transfers(),
		Snapshots: store.Transfers(),
	}
}
