package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_Profile(t *testing.T) {
	f := newFixture()
	alice := f.account(t, "alice", 100)
	lamp := f.item(t, alice.ID, "lamp", 10)

	svc := NewAccountService(f.store.Transfers())

	got, err := svc.Profile(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "alice", got.UserName)
	assert.Equal(t, int64(100), got.Balance)
	require.Len(t, got.Items, 1)
	assert.Equal(t, lamp.ID, got.Items[0].ID)
	assert.Zero(t, got.Items[0].OwnerID)

	_, err = svc.Profile(context.Background(), 404)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountService_Summary(t *testing.T) {
	f := newFixture()
	alice := f.account(t, "alice", 100)
	bob := f.account(t, "bob", 50)
	f.item(t, alice.ID, "lamp", 10)
	f.item(t, alice.ID, "chair", 20)

	svc := NewAccountService(f.store.Transfers())

	got, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, alice.ID, got[0].ID)
	assert.Len(t, got[0].Items, 2)
	assert.Equal(t, bob.ID, got[1].ID)
	assert.NotNil(t, got[1].Items)
	assert.Empty(t, got[1].Items)
}

func TestAccountService_Summary_ConsistentWithPurchases(t *testing.T) {
	f := newFixture()
	a := f.account(t, "a", 100)
	b := f.account(t, "b", 0)
	vase := f.item(t, b.ID, "vase", 100)

	purchases := NewPurchaseService(f.store.Transfers(), f.publisher)
	svc := NewAccountService(f.store.Transfers())

	// The vase changes hands back and forth; its owner never has money.
	done := make(chan struct{})
	go func() {
		defer close(done)
		buyer := a.ID
		for i := 0; i < 200; i++ {
			got, err := purchases.Buy(context.Background(), buyer, vase.ID)
			if !assert.NoError(t, err) || !assert.True(t, got.Completed()) {
				return
			}
			if buyer == a.ID {
				buyer = b.ID
			} else {
				buyer = a.ID
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}

		summary, err := svc.Summary(context.Background())
		require.NoError(t, err)
		require.Len(t, summary, 2)
		for _, acc := range summary {
			if len(acc.Items) == 1 {
				assert.Equal(t, int64(0), acc.Balance, "owner of the vase")
			} else {
				assert.Equal(t, int64(100), acc.Balance)
			}
		}

		profile, err := svc.Profile(context.Background(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), profile.Balance+int64(len(profile.Items))*100)
	}
}
