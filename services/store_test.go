package services

import (
	"context"
	"path/filepath"
	"testing"

	"marathon-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDatabase(filepath.Join(t.TempDir(), "marathon.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db)
}

func TestStoreLoadStreakWithoutRecord(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadStreak(context.Background())
	assert.ErrorIs(t, err, ErrStreakNotFound)
}

func TestStoreInitStreakIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.InitStreak(ctx, at(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Current)

	rec.Current = 4
	rec.Longest = 4
	require.NoError(t, store.SaveStreak(ctx, rec))

	again, err := store.InitStreak(ctx, at(2, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 4, again.Current, "init must not overwrite an existing record")
}

func TestStoreSaveStreakComparesVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.InitStreak(ctx, at(1, 0, 0))
	require.NoError(t, err)

	first, err := store.LoadStreak(ctx)
	require.NoError(t, err)
	second, err := store.LoadStreak(ctx)
	require.NoError(t, err)

	prev := 3
	first.Previous = &prev
	first.EvaluatedDay = "2024-01-03"
	first.UpdatedAt = at(4, 0, 1)
	require.NoError(t, store.SaveStreak(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.Current = 9
	assert.ErrorIs(t, store.SaveStreak(ctx, second), ErrStaleStreak)

	got, err := store.LoadStreak(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.Previous)
	assert.Equal(t, 3, *got.Previous)
	assert.Equal(t, 0, got.Current)
	assert.Equal(t, "2024-01-03", got.EvaluatedDay)
	assert.True(t, got.UpdatedAt.Equal(at(4, 0, 1)))

	got.Previous = nil
	require.NoError(t, store.SaveStreak(ctx, got))
	cleared, err := store.LoadStreak(ctx)
	require.NoError(t, err)
	assert.Nil(t, cleared.Previous)
}

func TestStoreParticipantsAndCheckins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertParticipant(ctx, &models.Participant{UserID: "1", DisplayName: "Ana", ChatID: -10}))
	require.NoError(t, store.UpsertParticipant(ctx, &models.Participant{UserID: "2", DisplayName: "Bo", ChatID: -10}))
	require.NoError(t, store.SetMission(ctx, "1", "10k under 50"))
	require.NoError(t, store.UpsertParticipant(ctx, &models.Participant{UserID: "1", DisplayName: "Ana K", ChatID: -10}))

	participants, err := store.ListParticipants(ctx)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, "Ana K", participants[0].DisplayName)
	require.NotNil(t, participants[0].Mission)
	assert.Equal(t, "10k under 50", *participants[0].Mission)

	assert.ErrorIs(t, store.SetMission(ctx, "404", "x"), ErrUnknownParticipant)

	for _, in := range []CheckinInput{
		{UserID: "1", DisplayName: "Ana K", Content: "5k", Day: "2024-01-01", At: at(1, 7, 0)},
		{UserID: "1", DisplayName: "Ana K", Content: "again", Day: "2024-01-01", At: at(1, 19, 0)},
		{UserID: "2", DisplayName: "Bo", PhotoRef: "https://cdn.example/p.jpg", Day: "2024-01-02", At: at(2, 6, 0)},
	} {
		_, err := store.RecordCheckin(ctx, in)
		require.NoError(t, err)
	}

	ids, err := store.CheckedInUserIDs(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"1": {}}, ids)

	checkins, err := store.ListCheckins(ctx, "2024-01-02")
	require.NoError(t, err)
	require.Len(t, checkins, 1)
	require.NotNil(t, checkins[0].PhotoRef)
	assert.Equal(t, "https://cdn.example/p.jpg", *checkins[0].PhotoRef)

	_, err = store.RecordCheckin(ctx, CheckinInput{Day: "2024-01-01"})
	assert.Error(t, err)
}
