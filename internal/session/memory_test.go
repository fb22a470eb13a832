package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	sess, err := store.Create(ctx, 7, "curl/8.0")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, uint(7), sess.AccountID)
	assert.Equal(t, "curl/8.0", sess.UserAgent)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, sess.ID), ErrSessionNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	sess, err := store.Create(ctx, 1, "")
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_DeleteAllForAccount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	a1, err := store.Create(ctx, 1, "")
	require.NoError(t, err)
	a2, err := store.Create(ctx, 1, "")
	require.NoError(t, err)
	other, err := store.Create(ctx, 2, "")
	require.NoError(t, err)

	require.NoError(t, store.DeleteAllForAccount(ctx, 1))

	for _, id := range []string{a1.ID, a2.ID} {
		_, err = store.Get(ctx, id)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}

	_, err = store.Get(ctx, other.ID)
	assert.NoError(t, err)
}
