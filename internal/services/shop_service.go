package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
	"github.com/prudhvinik1/kaucjaflow/internal/repositories"
)

var (
	ErrNameRequired = errors.New("shop name required")
	ErrNameTaken    = errors.New("shop name taken")
	ErrShopNotFound = errors.New("shop not found")
	ErrForbidden    = errors.New("forbidden")
)

type ShopService struct {
	shopRepo repositories.ShopRepository
}

func NewShopService(shopRepo repositories.ShopRepository) *ShopService {
	return &ShopService{shopRepo: shopRepo}
}

// Register sets the name and tax id of the caller's shop.
func (s *ShopService) Register(ctx context.Context, claims *TokenClaims, name, nip string) (*models.Shop, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	shop, err := s.shopRepo.GetByID(ctx, claims.ShopID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrShopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	shop.Name = name
	shop.NIP = nil
	if nip = strings.TrimSpace(nip); nip != "" {
		shop.NIP = &nip
	}

	err = s.shopRepo.Update(ctx, shop)
	if errors.Is(err, repositories.ErrConflict) {
		return nil, ErrNameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update shop: %w", err)
	}
	return shop, nil
}

// Get returns a shop, only to members of that shop.
func (s *ShopService) Get(ctx context.Context, claims *TokenClaims, id uuid.UUID) (*models.Shop, error) {
	if id != claims.ShopID {
		return nil, ErrForbidden
	}
	shop, err := s.shopRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrShopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return shop, nil
}
