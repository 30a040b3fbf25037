package models

import (
	"time"

	"github.com/google/uuid"
)

type Shop struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	NIP       *string    `json:"nip,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
