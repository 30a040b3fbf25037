package models

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ShopID    uuid.UUID `json:"shop_id"`
	Role      Role      `json:"role"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// MagicToken is a one-time login link waiting to be verified.
type MagicToken struct {
	Email     string    `json:"email"`
	UserID    uuid.UUID `json:"user_id"`
	ShopID    uuid.UUID `json:"shop_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
