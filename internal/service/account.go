package service

import (
	"context"
	"fmt"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

// SnapshotRepository reads accounts together with the items they own as of
// a single point in time.
type SnapshotRepository interface {
	Snapshot(ctx context.Context) ([]domain.Account, []domain.Item, error)
	SnapshotAccount(ctx context.Context, id uint) (domain.Account, []domain.Item, error)
}

type AccountService struct {
	snapshots SnapshotRepository
}

func NewAccountService(snapshots SnapshotRepository) *AccountService {
	return &AccountService{
		snapshots: snapshots,
	}
}

func (s *AccountService) Profile(ctx context.Context, accountID uint) (domain.AccountWithItems, error) {
	account, owned, err := s.snapshots.SnapshotAccount(ctx, accountID)
	if err != nil {
		return domain.AccountWithItems{}, fmt.Errorf("s.snapshots.SnapshotAccount -> %w", err)
	}

	return domain.NewAccountWithItems(account, publicItems(owned)), nil
}

// Summary lists every account with the items it currently owns. Balances
// and ownership come from the same snapshot.
func (s *AccountService) Summary(ctx context.Context) ([]domain.AccountWithItems, error) {
	accounts, items, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.snapshots.Snapshot -> %w", err)
	}

	byOwner := make(map[uint][]domain.Item, len(accounts))
	for _, it := range items {
		byOwner[it.OwnerID] = append(byOwner[it.OwnerID], it.Public())
	}

	summary := make([]domain.AccountWithItems, len(accounts))
	for i, a := range accounts {
		summary[i] = domain.NewAccountWithItems(a, byOwner[a.ID])
	}

	return summary, nil
}

func publicItems(items []domain.Item) []domain.Item {
	out := make([]domain.Item, len(items))
	for i, it := range items {
		out[i] = it.Public()
	}

	return out
}
