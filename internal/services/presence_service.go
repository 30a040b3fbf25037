package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
	"github.com/prudhvinik1/kaucjaflow/internal/repositories"
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,64}$`)

type PresenceService struct {
	presence repositories.PresenceRepository
}

func NewPresenceService(presence repositories.PresenceRepository) *PresenceService {
	return &PresenceService{presence: presence}
}

// Touch records a heartbeat for a device of the shop. Malformed device ids
// are ignored.
func (s *PresenceService) Touch(ctx context.Context, shopID uuid.UUID, deviceID string) error {
	if !deviceIDPattern.MatchString(deviceID) {
		return nil
	}
	if err := s.presence.SetPresence(ctx, &models.Presence{ShopID: shopID, DeviceID: deviceID}); err != nil {
		return fmt.Errorf("failed to record presence: %w", err)
	}
	return nil
}

func (s *PresenceService) List(ctx context.Context, shopID uuid.UUID) ([]models.Presence, error) {
	list, err := s.presence.GetShopPresence(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list presence: %w", err)
	}
	return list, nil
}
