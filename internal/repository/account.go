package repository

import (
	"context"
	"fmt"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository/dao"
)

var (
	ErrUserNameExists  = dao.ErrUserNameExists
	ErrAccountNotFound = dao.ErrAccountNotFound
)

type AccountDAO interface {
	Insert(ctx context.Context, account dao.Account) (dao.Account, error)
	FindByID(ctx context.Context, id uint) (dao.Account, error)
	FindByUserName(ctx context.Context, userName string) (dao.Account, error)
	FindAll(ctx context.Context) ([]dao.Account, error)
	Update(ctx context.Context, account dao.Account) (dao.Account, error)
	Delete(ctx context.Context, id uint) error
}

type AccountRepository struct {
	dao AccountDAO
}

func NewAccountRepository(dao AccountDAO) *AccountRepository {
	return &AccountRepository{
		dao: dao,
	}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	created, err := r.dao.Insert(ctx, dao.Account{
		Name:     account.Name,
		UserName: account.UserName,
		Password: account.Password,
		Balance:  account.Balance,
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return accountDaoToDomain(created), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uint) (domain.Account, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Account{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return accountDaoToDomain(found), nil
}

func (r *AccountRepository) FindByUserName(ctx context.Context, userName string) (domain.Account, error) {
	found, err := r.dao.FindByUserName(ctx, userName)
	if err != nil {
		return domain.Account{}, fmt.Errorf("r.dao.FindByUserName -> %w", err)
	}

	return accountDaoToDomain(found), nil
}

func (r *AccountRepository) FindAll(ctx context.Context) ([]domain.Account, error) {
	found, err := r.dao.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	accounts := make([]domain.Account, len(found))
	for i, a := range found {
		accounts[i] = accountDaoToDomain(a)
	}

	return accounts, nil
}

func (r *AccountRepository) Save(ctx context.Context, account domain.Account) (domain.Account, error) {
	updated, err := r.dao.Update(ctx, dao.Account{
		ID:       account.ID,
		Name:     account.Name,
		UserName: account.UserName,
		Password: account.Password,
		Balance:  account.Balance,
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return accountDaoToDomain(updated), nil
}

func (r *AccountRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func accountDaoToDomain(a dao.Account) domain.Account {
	return domain.Account{
		ID:        a.ID,
		Name:      a.Name,
		UserName:  a.UserName,
		Password:  a.Password,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
