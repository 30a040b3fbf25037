package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:"
	presenceTTL       = 60 * time.Second // a device goes offline after 60s without a sync request
)

type RedisPresenceRepository struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisPresenceRepository(client *redis.Client) *RedisPresenceRepository {
	return &RedisPresenceRepository{client: client, now: time.Now}
}

// SetPresence marks a device online for presenceTTL and records it in the
// shop's device set.
func (r *RedisPresenceRepository) SetPresence(ctx context.Context, presence *models.Presence) error {
	presence.LastSeen = r.now()
	presence.Status = string(models.StatusOnline)

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, presenceKey(presence.ShopID, presence.DeviceID), data, presenceTTL)
	pipe.SAdd(ctx, shopDevicesKey(presence.ShopID), presence.DeviceID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}
	return nil
}

func (r *RedisPresenceRepository) GetPresence(ctx context.Context, shopID uuid.UUID, deviceID string) (*models.Presence, error) {
	data, err := r.client.Get(ctx, presenceKey(shopID, deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		return offline(shopID, deviceID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var presence models.Presence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}
	return &presence, nil
}

// GetShopPresence returns every device ever seen for the shop, online ones
// with their last heartbeat, the rest as offline.
func (r *RedisPresenceRepository) GetShopPresence(ctx context.Context, shopID uuid.UUID) ([]models.Presence, error) {
	deviceIDs, err := r.client.SMembers(ctx, shopDevicesKey(shopID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list shop devices: %w", err)
	}
	if len(deviceIDs) == 0 {
		return []models.Presence{}, nil
	}
	sort.Strings(deviceIDs)

	keys := make([]string, len(deviceIDs))
	for i, id := range deviceIDs {
		keys[i] = presenceKey(shopID, id)
	}

	// MGet retrieves all keys in one round trip
	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk presence: %w", err)
	}

	out := make([]models.Presence, 0, len(deviceIDs))
	for i, result := range results {
		data, ok := result.(string)
		if !ok {
			out = append(out, *offline(shopID, deviceIDs[i]))
			continue
		}
		var presence models.Presence
		if err := json.Unmarshal([]byte(data), &presence); err != nil {
			out = append(out, *offline(shopID, deviceIDs[i]))
			continue
		}
		out = append(out, presence)
	}
	return out, nil
}

func offline(shopID uuid.UUID, deviceID string) *models.Presence {
	return &models.Presence{
		ShopID:   shopID,
		DeviceID: deviceID,
		Status:   string(models.StatusOffline),
	}
}

func presenceKey(shopID uuid.UUID, deviceID string) string {
	return presenceKeyPrefix + shopID.String() + ":" + deviceID
}

func shopDevicesKey(shopID uuid.UUID) string {
	return "shop:" + shopID.String() + ":devices"
}
