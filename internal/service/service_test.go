package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository/memstore"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.MarketEvent
}

func (p *recordingPublisher) Publish(event domain.MarketEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
}

func (p *recordingPublisher) Types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]domain.EventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}

	return types
}

type fixture struct {
	store     *memstore.Store
	publisher *recordingPublisher
}

func newFixture() *fixture {
	return &fixture{
		store:     memstore.New(),
		publisher: &recordingPublisher{},
	}
}

func (f *fixture) account(t *testing.T, userName string, balance int64) domain.Account {
	t.Helper()

	a, err := f.store.Accounts().Create(context.Background(), domain.Account{
		Name:     userName,
		UserName: userName,
		Balance:  balance,
	})
	require.NoError(t, err)

	return a
}

func (f *fixture) item(t *testing.T, ownerID uint, name string, price int64) domain.Item {
	t.Helper()

	it, err := f.store.Items().Create(context.Background(), domain.Item{
		Name:    name,
		Price:   price,
		OwnerID: ownerID,
	})
	require.NoError(t, err)

	return it
}

func (f *fixture) balance(t *testing.T, id uint) int64 {
	t.Helper()

	a, err := f.store.Accounts().FindByID(context.Background(), id)
	require.NoError(t, err)

	return a.Balance
}

func (f *fixture) owner(t *testing.T, itemID uint) uint {
	t.Helper()

	it, err := f.store.Items().FindByID(context.Background(), itemID)
	require.NoError(t, err)

	return it.OwnerID
}
