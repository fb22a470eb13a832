package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrNotItemOwner = errors.New("item belongs to another account")
)

type Item struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Price     int64  `gorm:"not null"`
	OwnerID   uint   `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ItemDAO struct {
	db *gorm.DB
}

func NewItemDAO(db *gorm.DB) *ItemDAO {
	return &ItemDAO{
		db: db,
	}
}

func (d *ItemDAO) Insert(ctx context.Context, item Item) (Item, error) {
	result := d.db.WithContext(ctx).Create(&item)
	if result.Error != nil {
		if isOwnerViolation(result.Error) {
			return Item{}, ErrAccountNotFound
		}

		return Item{}, result.Error
	}

	return item, nil
}

func (d *ItemDAO) FindByID(ctx context.Context, id uint) (Item, error) {
	var item Item

	result := d.db.WithContext(ctx).First(&item, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Item{}, ErrItemNotFound
		}

		return Item{}, result.Error
	}

	return item, nil
}

// FindAll lists every item. Without includeOwner the owner column is not
// read at all.
func (d *ItemDAO) FindAll(ctx context.Context, includeOwner bool) ([]Item, error) {
	var items []Item

	query := d.db.WithContext(ctx).Order("id")
	if !includeOwner {
		query = query.Omit("owner_id")
	}

	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}

func (d *ItemDAO) FindByOwnerIDs(ctx context.Context, ownerIDs []uint) ([]Item, error) {
	var items []Item
	if len(ownerIDs) == 0 {
		return items, nil
	}

	result := d.db.WithContext(ctx).Where("owner_id IN ?", ownerIDs).Order("id").Find(&items)
	if result.Error != nil {
		return nil, result.Error
	}

	return items, nil
}

func (d *ItemDAO) Update(ctx context.Context, item Item) (Item, error) {
	result := d.db.WithContext(ctx).Model(&Item{ID: item.ID}).Updates(map[string]interface{}{
		"name":     item.Name,
		"price":    item.Price,
		"owner_id": item.OwnerID,
	})
	if result.Error != nil {
		return Item{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Item{}, ErrItemNotFound
	}

	return d.FindByID(ctx, item.ID)
}

// DeleteOwned deletes the item only while ownerID still owns it. The row is
// locked first so a purchase cannot move it between the check and the delete.
func (d *ItemDAO) DeleteOwned(ctx context.Context, id, ownerID uint) (Item, error) {
	var item Item

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, id)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}

			return result.Error
		}
		if item.OwnerID != ownerID {
			return ErrNotItemOwner
		}

		result = tx.Where("owner_id = ?", ownerID).Delete(&Item{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotItemOwner
		}

		return nil
	})
	if err != nil {
		return Item{}, err
	}

	return item, nil
}

func (d *ItemDAO) DeleteByOwnerID(ctx context.Context, ownerID uint) (int64, error) {
	result := d.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&Item{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func isOwnerViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.ForeignKeyViolation
	}

	// sqlite reports constraint failures as plain text.
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
