package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceRepository_ShopPresence(t *testing.T) {
	client := getTestRedisClient(t)
	repo := NewRedisPresenceRepository(client)
	ctx := context.Background()
	shopID := uuid.New()

	require.NoError(t, repo.SetPresence(ctx, &models.Presence{ShopID: shopID, DeviceID: "pos-a"}))
	require.NoError(t, repo.SetPresence(ctx, &models.Presence{ShopID: shopID, DeviceID: "pos-b"}))
	require.NoError(t, repo.SetPresence(ctx, &models.Presence{ShopID: uuid.New(), DeviceID: "pos-x"}))

	// expire pos-b's heartbeat while it stays in the shop's device set
	require.NoError(t, client.Del(ctx, presenceKey(shopID, "pos-b")).Err())

	// ACT
	list, err := repo.GetShopPresence(ctx, shopID)

	// ASSERT
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "pos-a", list[0].DeviceID)
	assert.Equal(t, string(models.StatusOnline), list[0].Status)
	assert.False(t, list[0].LastSeen.IsZero())
	assert.Equal(t, "pos-b", list[1].DeviceID)
	assert.Equal(t, string(models.StatusOffline), list[1].Status)
}

func TestPresenceRepository_UnknownDeviceIsOffline(t *testing.T) {
	repo := NewRedisPresenceRepository(getTestRedisClient(t))

	p, err := repo.GetPresence(context.Background(), uuid.New(), "nobody")

	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOffline), p.Status)
	assert.True(t, p.LastSeen.IsZero())
}
