package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prudhvinik1/kaucjaflow/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	magicTokenPrefix    = "magic:token:"
	magicCooldownPrefix = "magic:cooldown:"
)

type RedisMagicTokenRepository struct {
	client *redis.Client
}

func NewRedisMagicTokenRepository(client *redis.Client) *RedisMagicTokenRepository {
	return &RedisMagicTokenRepository{client: client}
}

func (r *RedisMagicTokenRepository) Create(ctx context.Context, token string, mt *models.MagicToken) error {
	data, err := json.Marshal(mt)
	if err != nil {
		return fmt.Errorf("failed to marshal magic token: %w", err)
	}

	ttl := time.Until(mt.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("magic token already expired")
	}

	if err := r.client.Set(ctx, magicTokenPrefix+token, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store magic token: %w", err)
	}
	return nil
}

// Consume returns the token payload and deletes it in one step, so a link
// can be used at most once.
func (r *RedisMagicTokenRepository) Consume(ctx context.Context, token string) (*models.MagicToken, error) {
	data, err := r.client.GetDel(ctx, magicTokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume magic token: %w", err)
	}

	var mt models.MagicToken
	if err := json.Unmarshal([]byte(data), &mt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal magic token: %w", err)
	}
	return &mt, nil
}

// AcquireCooldown reports whether a new link may be sent to email. It returns
// false while a previous request is still inside its cooldown.
func (r *RedisMagicTokenRepository) AcquireCooldown(ctx context.Context, email string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, magicCooldownPrefix+strings.ToLower(email), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set cooldown: %w", err)
	}
	return ok, nil
}
