package repository

import (
	"context"
	"fmt"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository/dao"
)

var (
	ErrItemNotFound = dao.ErrItemNotFound
	ErrNotItemOwner = dao.ErrNotItemOwner
)

type ItemDAO interface {
	Insert(ctx context.Context, item dao.Item) (dao.Item, error)
	FindByID(ctx context.Context, id uint) (dao.Item, error)
	FindAll(ctx context.Context, includeOwner bool) ([]dao.Item, error)
	FindByOwnerIDs(ctx context.Context, ownerIDs []uint) ([]dao.Item, error)
	Update(ctx context.Context, item dao.Item) (dao.Item, error)
	DeleteOwned(ctx context.Context, id, ownerID uint) (dao.Item, error)
	DeleteByOwnerID(ctx context.Context, ownerID uint) (int64, error)
}

type ItemRepository struct {
	dao ItemDAO
}

func NewItemRepository(dao ItemDAO) *ItemRepository {
	return &ItemRepository{
		dao: dao,
	}
}

func (r *ItemRepository) Create(ctx context.Context, item domain.Item) (domain.Item, error) {
	created, err := r.dao.Insert(ctx, itemDomainToDao(item))
	if err != nil {
		return domain.Item{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return itemDaoToDomain(created), nil
}

func (r *ItemRepository) FindByID(ctx context.Context, id uint) (domain.Item, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return itemDaoToDomain(found), nil
}

func (r *ItemRepository) ListAll(ctx context.Context, includeOwner bool) ([]domain.Item, error) {
	found, err := r.dao.FindAll(ctx, includeOwner)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	items := make([]domain.Item, len(found))
	for i, it := range found {
		items[i] = itemDaoToDomain(it)
		if !includeOwner {
			items[i] = items[i].Public()
		}
	}

	return items, nil
}

func (r *ItemRepository) FindByOwner(ctx context.Context, ownerID uint) ([]domain.Item, error) {
	byOwner, err := r.FindByOwners(ctx, []uint{ownerID})
	if err != nil {
		return nil, err
	}

	return byOwner[ownerID], nil
}

func (r *ItemRepository) FindByOwners(ctx context.Context, ownerIDs []uint) (map[uint][]domain.Item, error) {
	found, err := r.dao.FindByOwnerIDs(ctx, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByOwnerIDs -> %w", err)
	}

	byOwner := make(map[uint][]domain.Item, len(ownerIDs))
	for _, it := range found {
		byOwner[it.OwnerID] = append(byOwner[it.OwnerID], itemDaoToDomain(it))
	}

	return byOwner, nil
}

func (r *ItemRepository) Save(ctx context.Context, item domain.Item) (domain.Item, error) {
	updated, err := r.dao.Update(ctx, itemDomainToDao(item))
	if err != nil {
		return domain.Item{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return itemDaoToDomain(updated), nil
}

func (r *ItemRepository) DeleteOwned(ctx context.Context, id, ownerID uint) (domain.Item, error) {
	deleted, err := r.dao.DeleteOwned(ctx, id, ownerID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("r.dao.DeleteOwned -> %w", err)
	}

	return itemDaoToDomain(deleted), nil
}

func (r *ItemRepository) DeleteByOwner(ctx context.Context, ownerID uint) error {
	if _, err := r.dao.DeleteByOwnerID(ctx, ownerID); err != nil {
		return fmt.Errorf("r.dao.DeleteByOwnerID -> %w", err)
	}

	return nil
}

func itemDaoToDomain(it dao.Item) domain.Item {
	return domain.Item{
		ID:        it.ID,
		Name:      it.Name,
		Price:     it.Price,
		OwnerID:   it.OwnerID,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}

func itemDomainToDao(it domain.Item) dao.Item {
	return dao.Item{
		ID:      it.ID,
		Name:    it.Name,
		Price:   it.Price,
		OwnerID: it.OwnerID,
	}
}
