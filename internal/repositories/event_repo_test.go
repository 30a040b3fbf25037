package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepository_InsertBatchIsIdempotent(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresEventRepository(pool)
	shop := createTestShop(t, pool)
	ctx := context.Background()
	ts := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC).UnixMilli()

	batch := []models.WireEvent{
		{ClientEventID: "d-1", Type: models.EventPlastic, Timestamp: ts},
		{ClientEventID: "d-2", Type: models.EventGlass, Timestamp: ts + 1},
	}

	// ACT: Push the same batch twice, then a superset
	first, err := repo.InsertBatch(ctx, shop.ID, uuid.Nil, batch)
	require.NoError(t, err)
	second, err := repo.InsertBatch(ctx, shop.ID, uuid.Nil, batch)
	require.NoError(t, err)
	third, err := repo.InsertBatch(ctx, shop.ID, uuid.Nil, append(batch, models.WireEvent{
		ClientEventID: "d-3", Type: models.EventAluminum, Timestamp: ts + 2,
	}))
	require.NoError(t, err)

	// ASSERT
	assert.Equal(t, 2, first)
	assert.Equal(t, 0, second, "duplicates are not counted as inserted")
	assert.Equal(t, 1, third)

	events, err := repo.ListRange(ctx, shop.ID, models.DayWindowFor(time.UnixMilli(ts).UTC()))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "d-3", events[0].ClientEventID, "newest first")
	assert.Equal(t, shop.ID.String(), events[0].ShopID)
}

func TestEventRepository_ShopsAreIsolated(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresEventRepository(pool)
	a := createTestShop(t, pool)
	b := createTestShop(t, pool)
	ctx := context.Background()
	now := time.Now().UTC()

	ev := []models.WireEvent{{ClientEventID: "same-id", Type: models.EventPlastic, Timestamp: now.UnixMilli()}}
	n, err := repo.InsertBatch(ctx, a.ID, uuid.Nil, ev)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.InsertBatch(ctx, b.ID, uuid.Nil, ev)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "client ids are unique per shop only")

	events, err := repo.ListRange(ctx, a.ID, models.DayWindowFor(now))
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEventRepository_Counts(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresEventRepository(pool)
	shop := createTestShop(t, pool)
	ctx := context.Background()
	day1 := time.Date(2026, 5, 4, 23, 59, 0, 0, time.UTC).UnixMilli()
	day2 := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC).UnixMilli()

	_, err := repo.InsertBatch(ctx, shop.ID, uuid.Nil, []models.WireEvent{
		{ClientEventID: "1", Type: models.EventPlastic, Timestamp: day1},
		{ClientEventID: "2", Type: models.EventPlastic, Timestamp: day1},
		{ClientEventID: "3", Type: models.EventGlass, Timestamp: day1},
		{ClientEventID: "4", Type: models.EventAluminum, Timestamp: day2},
	})
	require.NoError(t, err)

	summary, err := repo.CountByType(ctx, shop.ID, models.DayWindowFor(time.UnixMilli(day1).UTC()))
	require.NoError(t, err)
	assert.Equal(t, models.Summary{Plastic: 2, Glass: 1, Total: 3}, summary)

	days, err := repo.CountByDay(ctx, shop.ID, models.DayWindow{From: day1 - 1000, To: day2 + 1000})
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-05-04", days[0].Day)
	assert.Equal(t, int64(3), days[0].Total)
	assert.Equal(t, "2026-05-05", days[1].Day)
	assert.Equal(t, int64(1), days[1].Aluminum)
}
