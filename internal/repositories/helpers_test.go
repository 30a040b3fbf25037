package repositories

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/kaucjaflow/internal/database"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// getTestRedisClient connects to TEST_REDIS_URL and skips the test when it is
// unset. The selected database is flushed before and after the test.
func getTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := database.NewRedisClient(ctx, url)
	require.NoError(t, err, "Failed to connect to test Redis")

	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

// getTestPool connects to TEST_DATABASE_URL, applies the schema and skips the
// test when the variable is unset.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, url)
	require.NoError(t, err, "Failed to connect to test Postgres")
	require.NoError(t, database.EnsureSchema(ctx, pool))
	t.Cleanup(pool.Close)
	return pool
}

// createTestShop inserts a uniquely named shop and removes it (with its users
// and events) after the test.
func createTestShop(t *testing.T, pool *pgxpool.Pool) *models.Shop {
	t.Helper()
	shop := &models.Shop{Name: "test-shop-" + uuid.NewString()}
	require.NoError(t, NewPostgresShopRepository(pool).Create(context.Background(), shop))
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM shops WHERE id = $1`, shop.ID)
	})
	return shop
}
