package state

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smileclinic/whatsbot/internal/domain/models"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreSessionCreatedOnce(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, 0)

	s, err := store.Session(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
	assert.True(t, mr.Exists("whatsbot:session:u1"))

	s.WaitingForOffersConfirmation = true
	require.NoError(t, store.SaveSession(ctx, s))

	again, err := store.Session(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, again.WaitingForOffersConfirmation)
}

func TestRedisStoreSessionIsACopy(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, 0)

	first, err := store.Session(ctx, "u2")
	require.NoError(t, err)
	second, err := store.Session(ctx, "u2")
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)
	assert.NotSame(t, first, second)

	first.WaitingForCancelPhone = true
	third, err := store.Session(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, third.WaitingForCancelPhone)
}

func TestRedisStoreDraftLifecycle(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	d, err := store.Draft(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, d)

	draft := models.NewDraft("9 PM")
	require.NoError(t, draft.Fill(models.FieldName, "Ahmad Khaled"))
	require.NoError(t, store.SaveDraft(ctx, "u1", draft))
	assert.Equal(t, time.Hour, mr.TTL("whatsbot:draft:u1"))

	d, err = store.Draft(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, *draft, *d)

	require.NoError(t, store.DeleteDraft(ctx, "u1"))
	assert.False(t, mr.Exists("whatsbot:draft:u1"))
}

func TestRedisStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, 0)

	require.NoError(t, mr.Set("whatsbot:draft:u1", "{not json"))

	_, err := store.Draft(ctx, "u1")
	assert.Error(t, err)
}
