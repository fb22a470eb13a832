package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/events"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository"
)

var (
	ErrItemNotFound = repository.ErrItemNotFound
	ErrNotItemOwner = repository.ErrNotItemOwner
)

type ItemRepository interface {
	Create(ctx context.Context, item domain.Item) (domain.Item, error)
	ListAll(ctx context.Context, includeOwner bool) ([]domain.Item, error)
	DeleteOwned(ctx context.Context, id, ownerID uint) (domain.Item, error)
}

type ItemService struct {
	repo      ItemRepository
	publisher events.Publisher
	now       func() time.Time
}

func NewItemService(repo ItemRepository, publisher events.Publisher) *ItemService {
	return &ItemService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// ListItems returns every item without its owner.
func (s *ItemService) ListItems(ctx context.Context) ([]domain.Item, error) {
	items, err := s.repo.ListAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("s.repo.ListAll -> %w", err)
	}

	return items, nil
}

func (s *ItemService) CreateItem(ctx context.Context, ownerID uint, name string, price int64) (domain.Item, error) {
	created, err := s.repo.Create(ctx, domain.Item{
		Name:    name,
		Price:   price,
		OwnerID: ownerID,
	})
	if err != nil {
		return domain.Item{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	s.publisher.Publish(domain.NewMarketEvent(domain.EventItemListed, created, s.now()))

	return created, nil
}

// DeleteItem removes itemID if accountID owns it at the moment of deletion.
func (s *ItemService) DeleteItem(ctx context.Context, accountID, itemID uint) error {
	item, err := s.repo.DeleteOwned(ctx, itemID, accountID)
	if err != nil {
		return fmt.Errorf("s.repo.DeleteOwned -> %w", err)
	}

	s.publisher.Publish(domain.NewMarketEvent(domain.EventItemRemoved, item, s.now()))

	return nil
}
