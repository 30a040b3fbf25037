package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// POSConfig configures the point-of-sale client.
type POSConfig struct {
	ServerURL    string        `yaml:"server_url"`
	ShopID       string        `yaml:"shop_id"`
	DataDir      string        `yaml:"data_dir"`
	Token        string        `yaml:"token,omitempty"`
	DeviceID     string        `yaml:"device_id,omitempty"`
	SyncInterval time.Duration `yaml:"sync_interval"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
}

func DefaultPOSConfig() *POSConfig {
	return &POSConfig{
		ServerURL:    "http://localhost:8080",
		DataDir:      defaultDataDir(),
		SyncInterval: 20 * time.Second,
		HTTPTimeout:  10 * time.Second,
	}
}

// LoadPOSConfig reads path when it exists and then applies KF_* environment
// overrides. A missing file is not an error.
func LoadPOSConfig(path string) (*POSConfig, error) {
	cfg := DefaultPOSConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.ServerURL = getEnv("KF_SERVER_URL", cfg.ServerURL)
	cfg.ShopID = getEnv("KF_SHOP_ID", cfg.ShopID)
	cfg.DataDir = getEnv("KF_DATA_DIR", cfg.DataDir)
	cfg.Token = getEnv("KF_TOKEN", cfg.Token)
	cfg.DeviceID = getEnv("KF_DEVICE_ID", cfg.DeviceID)

	if v := os.Getenv("KF_SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.New("invalid KF_SYNC_INTERVAL format")
		}
		cfg.SyncInterval = d
	}
	if v := os.Getenv("KF_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.New("invalid KF_HTTP_TIMEOUT format")
		}
		cfg.HTTPTimeout = d
	}

	if cfg.SyncInterval <= 0 {
		return nil, errors.New("sync_interval must be positive")
	}
	return cfg, nil
}

// Save writes the config back, used after login stores a token.
func (c *POSConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func DefaultPOSConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "kaucjaflow-pos.yaml"
	}
	return filepath.Join(dir, "kaucjaflow", "pos.yaml")
}

func defaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(dir, "kaucjaflow")
}
