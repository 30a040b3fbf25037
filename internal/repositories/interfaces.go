package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type ShopRepository interface {
	Create(ctx context.Context, shop *models.Shop) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	GetByName(ctx context.Context, name string) (*models.Shop, error)
	GetOrCreateByName(ctx context.Context, name string) (*models.Shop, error)
	Update(ctx context.Context, shop *models.Shop) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// EventRepository persists pushed events. InsertBatch must treat
// (shop, client_event_id) as unique and skip duplicates silently.
type EventRepository interface {
	InsertBatch(ctx context.Context, shopID, createdBy uuid.UUID, events []models.WireEvent) (int, error)
	ListRange(ctx context.Context, shopID uuid.UUID, window models.DayWindow) ([]models.StoredEvent, error)
	CountByType(ctx context.Context, shopID uuid.UUID, window models.DayWindow) (models.Summary, error)
	CountByDay(ctx context.Context, shopID uuid.UUID, window models.DayWindow) ([]models.DayRow, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

type MagicTokenRepository interface {
	Create(ctx context.Context, token string, mt *models.MagicToken) error
	Consume(ctx context.Context, token string) (*models.MagicToken, error)
	AcquireCooldown(ctx context.Context, email string, ttl time.Duration) (bool, error)
}

type PresenceRepository interface {
	SetPresence(ctx context.Context, presence *models.Presence) error
	GetPresence(ctx context.Context, shopID uuid.UUID, deviceID string) (*models.Presence, error)
	GetShopPresence(ctx context.Context, shopID uuid.UUID) ([]models.Presence, error)
}
