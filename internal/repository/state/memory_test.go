package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smileclinic/whatsbot/internal/domain/models"
)

func TestMemoryStoreSessionIdentity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.Session(ctx, "962790000001")
	require.NoError(t, err)
	second, err := store.Session(ctx, "962790000001")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.False(t, first.WaitingForCancelPhone)
	assert.Empty(t, first.LastIntent)
}

func TestMemoryStoreSaveSessionUpdatesRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	held, err := store.Session(ctx, "u1")
	require.NoError(t, err)

	update := *held
	update.WaitingForCancelPhone = true
	require.NoError(t, store.SaveSession(ctx, &update))

	assert.True(t, held.WaitingForCancelPhone, "earlier pointer observes the save")

	again, err := store.Session(ctx, "u1")
	require.NoError(t, err)
	assert.Same(t, held, again)
}

func TestMemoryStoreDrafts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	d, err := store.Draft(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, d)

	require.NoError(t, store.SaveDraft(ctx, "u1", models.NewDraft("6 PM")))
	d, err = store.Draft(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "6 PM", d.Appointment)

	require.NoError(t, store.DeleteDraft(ctx, "u1"))
	d, err = store.Draft(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, drafts := store.Len()
	assert.Zero(t, drafts)
}

func TestMemoryStoreSaveNilDraftDeletes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SaveDraft(ctx, "u1", models.NewDraft("3 PM")))
	require.NoError(t, store.SaveDraft(ctx, "u1", nil))

	d, err := store.Draft(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestMemoryStoreRejectsAnonymousSession(t *testing.T) {
	assert.Error(t, NewMemoryStore().SaveSession(context.Background(), &models.Session{}))
}
