// Package localstore is the POS device's durable, shop-isolated event log.
//
// Each shop gets its own SQLite file, so one Store can never observe another
// shop's events. The store assumes a single writer at a time; the sync
// reconciler guarantees that, the store itself does no locking.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrInvalidShopID = errors.New("invalid shop id")
	ErrShopMismatch  = errors.New("database belongs to a different shop")
	ErrInvalidType   = errors.New("invalid event type")
)

var shopIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Store is the local event log of a single shop.
type Store struct {
	db       *sql.DB
	path     string
	shopID   string
	deviceID string
	now      func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now. The location of the returned time defines
// what "today" means for ListToday.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDeviceID seeds the device id used to derive client event ids. It only
// takes effect for a fresh database; an existing device id is never changed.
func WithDeviceID(id string) Option {
	return func(s *Store) { s.deviceID = id }
}

// FileName returns the database file name for a shop.
func FileName(shopID string) string {
	return "kaucjaflow-pos-" + shopID + ".db"
}

// Open creates or opens the event log of shopID inside dir.
func Open(ctx context.Context, dir, shopID string, opts ...Option) (*Store, error) {
	if !shopIDPattern.MatchString(shopID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidShopID, shopID)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	s := &Store{
		path:   filepath.Join(dir, FileName(shopID)),
		shopID: shopID,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	s.db = db

	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if err := applyPragmas(ctx, s.db); err != nil {
		return fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := runMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	owner, err := s.meta(ctx, "shop_id")
	if err != nil {
		return err
	}
	switch owner {
	case "":
		if err := s.setMeta(ctx, "shop_id", s.shopID); err != nil {
			return err
		}
	case s.shopID:
	default:
		return fmt.Errorf("%w: %s", ErrShopMismatch, owner)
	}

	device, err := s.meta(ctx, "device_id")
	if err != nil {
		return err
	}
	if device != "" {
		s.deviceID = device
		return nil
	}
	if s.deviceID == "" {
		s.deviceID = uuid.New().String()
	}
	return s.setMeta(ctx, "device_id", s.deviceID)
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ShopID() string   { return s.shopID }
func (s *Store) DeviceID() string { return s.deviceID }
func (s *Store) Path() string     { return s.path }

// Now returns the store clock's current time.
func (s *Store) Now() time.Time { return s.now() }

func (s *Store) meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write meta %s: %w", key, err)
	}
	return nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
