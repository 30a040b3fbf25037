package models

import (
	"time"

	"github.com/google/uuid"
)

// Presence tracks the last time a POS device talked to the event endpoint.
type Presence struct {
	ShopID   uuid.UUID `json:"shop_id"`
	DeviceID string    `json:"device_id"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)
