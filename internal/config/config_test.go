package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_RequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/kaucjaflow")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/kaucjaflow")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_EXPIRY", "")
	t.Setenv("DEV_LOGIN", "")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 14*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 15*time.Minute, cfg.MagicLinkTTL)
	assert.Equal(t, time.Minute, cfg.MagicLinkCooldown)
	assert.False(t, cfg.DevLogin)
}

func TestLoadConfig_InvalidExpiry(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "two weeks")

	_, err := LoadConfig()

	assert.EqualError(t, err, "invalid JWT_EXPIRY format")
}

func TestLoadPOSConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_url: https://kaucjaflow.example
shop_id: shop-a
data_dir: /var/lib/kaucjaflow
sync_interval: 45s
`), 0o600))
	t.Setenv("KF_SHOP_ID", "shop-b")
	t.Setenv("KF_TOKEN", "")

	cfg, err := LoadPOSConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "https://kaucjaflow.example", cfg.ServerURL)
	assert.Equal(t, "shop-b", cfg.ShopID, "environment wins over the file")
	assert.Equal(t, 45*time.Second, cfg.SyncInterval)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
}

func TestLoadPOSConfig_MissingFile(t *testing.T) {
	cfg, err := LoadPOSConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, cfg.SyncInterval)
}

func TestPOSConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pos.yaml")
	cfg := DefaultPOSConfig()
	cfg.ShopID = "shop-a"
	cfg.Token = "jwt"

	require.NoError(t, cfg.Save(path))
	loaded, err := LoadPOSConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "jwt", loaded.Token)
	assert.Equal(t, "shop-a", loaded.ShopID)
}
