package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrUserNameExists  = errors.New("user name already exists")
	ErrAccountNotFound = errors.New("account not found")
)

type Account struct {
	ID uint `gorm:"primaryKey"`

	Name     string `gorm:"not null"`
	UserName string `gorm:"unique;not null"`
	Password string `gorm:"not null"`
	Balance  int64  `gorm:"not null"`

	Items []Item `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type AccountDAO struct {
	db *gorm.DB
}

func NewAccountDAO(db *gorm.DB) *AccountDAO {
	return &AccountDAO{
		db: db,
	}
}

func (d *AccountDAO) Insert(ctx context.Context, account Account) (Account, error) {
	result := d.db.WithContext(ctx).Create(&account)
	if result.Error != nil {
		if isUserNameViolation(result.Error) {
			return Account{}, ErrUserNameExists
		}

		return Account{}, result.Error
	}

	return account, nil
}

func (d *AccountDAO) FindByID(ctx context.Context, id uint) (Account, error) {
	var account Account

	result := d.db.WithContext(ctx).First(&account, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Account{}, ErrAccountNotFound
		}

		return Account{}, result.Error
	}

	return account, nil
}

func (d *AccountDAO) FindByUserName(ctx context.Context, userName string) (Account, error) {
	var account Account

	result := d.db.WithContext(ctx).First(&account, "user_name = ?", userName)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Account{}, ErrAccountNotFound
		}

		return Account{}, result.Error
	}

	return account, nil
}

func (d *AccountDAO) FindAll(ctx context.Context) ([]Account, error) {
	var accounts []Account

	result := d.db.WithContext(ctx).Order("id").Find(&accounts)
	if result.Error != nil {
		return nil, result.Error
	}

	return accounts, nil
}

func (d *AccountDAO) Update(ctx context.Context, account Account) (Account, error) {
	result := d.db.WithContext(ctx).Model(&Account{ID: account.ID}).Updates(map[string]interface{}{
		"name":     account.Name,
		"password": account.Password,
		"balance":  account.Balance,
	})
	if result.Error != nil {
		if isUserNameViolation(result.Error) {
			return Account{}, ErrUserNameExists
		}

		return Account{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Account{}, ErrAccountNotFound
	}

	return d.FindByID(ctx, account.ID)
}

// Delete removes the account together with every item it owns.
func (d *AccountDAO) Delete(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", id).Delete(&Item{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&Account{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAccountNotFound
		}

		return nil
	})
}

func isUserNameViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation &&
			strings.Contains(pgErr.Message, `unique constraint "uni_accounts_user_name"`)
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed: accounts.user_name")
}
