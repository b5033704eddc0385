package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/schulmanager/internal/client/storage"
	"github.com/iudanet/schulmanager/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "client_test.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func TestStorage_SaveGetDeleteAccount(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	state := &storage.AccountState{
		NodeID:     uuid.NewString(),
		Identifier: "parent@example.com",
		Tenants: []models.TenantCandidate{
			{ID: 7, Label: "Gymnasium Nord"},
			{ID: 12, Label: "Realschule Süd"},
		},
		Subjects: []models.Subject{
			{ID: 4711, Firstname: "Lena", Lastname: "Muster", ClassID: 8, TenantID: 7},
		},
		DiscoveredAt: time.Now().UTC().Truncate(time.Second),
	}

	_, err := store.GetAccount(ctx)
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)

	require.NoError(t, store.SaveAccount(ctx, state))

	got, err := store.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, got)

	require.NoError(t, store.DeleteAccount(ctx))

	_, err = store.GetAccount(ctx)
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestStorage_SaveAccountOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	first := &storage.AccountState{NodeID: uuid.NewString(), Identifier: "a@example.com"}
	second := &storage.AccountState{NodeID: uuid.NewString(), Identifier: "b@example.com"}

	require.NoError(t, store.SaveAccount(ctx, first))
	require.NoError(t, store.SaveAccount(ctx, second))

	got, err := store.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", got.Identifier)
}

func TestStorage_DeleteAccountNotFound(t *testing.T) {
	store := newTestStorage(t)

	err := store.DeleteAccount(context.Background())
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestStorage_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	snapshot := &models.ScheduleSnapshot{
		SubjectID:   4711,
		WindowStart: "2026-03-02",
		WindowEnd:   "2026-03-06",
		Slots: []models.Slot{
			{
				Date:            "2026-03-02",
				ClassHourNumber: 1,
				StartTime:       "07:50:00",
				EndTime:         "08:35:00",
				Kind:            models.SlotRegular,
				Subject:         "Mathematik",
				Teacher:         "MUE",
				Room:            "R101",
			},
		},
		TakenAt: time.Now().UTC().Truncate(time.Second),
	}

	_, err := store.GetSnapshot(ctx, 4711)
	assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)

	require.NoError(t, store.SaveSnapshot(ctx, snapshot))

	got, err := store.GetSnapshot(ctx, 4711)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)

	// other subjects stay independent
	_, err = store.GetSnapshot(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
}

func TestStorage_DeleteSnapshots(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	for _, id := range []int{1, 2, 3} {
		require.NoError(t, store.SaveSnapshot(ctx, &models.ScheduleSnapshot{SubjectID: id}))
	}

	require.NoError(t, store.DeleteSnapshots(ctx))

	for _, id := range []int{1, 2, 3} {
		_, err := store.GetSnapshot(ctx, id)
		assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
	}

	// bucket is usable again after the wipe
	require.NoError(t, store.SaveSnapshot(ctx, &models.ScheduleSnapshot{SubjectID: 1}))
}

func TestStorage_Reopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "client_test.db")

	store, err := New(ctx, dbPath)
	require.NoError(t, err)

	state := &storage.AccountState{NodeID: uuid.NewString(), Identifier: "parent@example.com"}
	require.NoError(t, store.SaveAccount(ctx, state))
	require.NoError(t, store.Close())

	reopened, err := New(ctx, dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Identifier, got.Identifier)
}
