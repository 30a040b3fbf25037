package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/prudhvinik1/kaucjaflow/internal/config"
	"github.com/prudhvinik1/kaucjaflow/internal/handlers"
	"github.com/prudhvinik1/kaucjaflow/internal/repositories/repotest"
	"github.com/prudhvinik1/kaucjaflow/internal/services"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// writeConfig stores cfg in a temp dir and returns its path.
func writeConfig(t *testing.T, cfg config.POSConfig) string {
	t.Helper()
	for _, key := range []string{"KF_SERVER_URL", "KF_SHOP_ID", "KF_DATA_DIR", "KF_TOKEN", "KF_DEVICE_ID"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(dir, "data")
	}
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = time.Minute
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = time.Second
	}

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "pos.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// execute runs the CLI with a fixed clock and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{
		Now:      func() time.Time { return fixedNow },
		Location: time.UTC,
	}
	cmd := newRootCommand(opts)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

// newServer starts the HTTP API on in-memory repositories.
func newServer(t *testing.T) (*httptest.Server, *repotest.Store) {
	t.Helper()
	store := repotest.New()
	auth := services.NewAuthService(
		store.Shops(), store.Users(), store.Sessions(), store.Tokens(), services.LogMailer{},
		services.AuthConfig{
			JWTSecret:    "test-secret",
			JWTExpiry:    time.Hour,
			LinkTTL:      15 * time.Minute,
			LinkCooldown: time.Minute,
			BaseURL:      "http://pos.test",
		},
		nil,
	)
	h := handlers.New(
		auth,
		services.NewEventService(store.Events(), nil),
		services.NewShopService(store.Shops()),
		services.NewPresenceService(store.Presence()),
		handlers.Options{},
	)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, store
}
