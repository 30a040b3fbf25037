package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

type PostgresShopRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresShopRepository(pool *pgxpool.Pool) *PostgresShopRepository {
	return &PostgresShopRepository{pool: pool}
}

func (r *PostgresShopRepository) Create(ctx context.Context, shop *models.Shop) error {
	query := `INSERT INTO shops (name, nip)
	          VALUES ($1, $2)
	          RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, shop.Name, shop.NIP).
		Scan(&shop.ID, &shop.CreatedAt, &shop.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create shop: %w", err)
	}
	return nil
}

func (r *PostgresShopRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	query := `SELECT id, name, nip, created_at, updated_at FROM shops WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

func (r *PostgresShopRepository) GetByName(ctx context.Context, name string) (*models.Shop, error) {
	query := `SELECT id, name, nip, created_at, updated_at FROM shops WHERE name = $1`
	return r.scanOne(ctx, query, name)
}

// GetOrCreateByName returns the shop called name, creating it when missing.
// Concurrent callers converge on the same row through the unique name.
func (r *PostgresShopRepository) GetOrCreateByName(ctx context.Context, name string) (*models.Shop, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO shops (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure shop: %w", err)
	}
	return r.GetByName(ctx, name)
}

func (r *PostgresShopRepository) Update(ctx context.Context, shop *models.Shop) error {
	query := `UPDATE shops
	          SET name = $1, nip = $2, updated_at = NOW()
	          WHERE id = $3
	          RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, shop.Name, shop.NIP, shop.ID).Scan(&shop.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update shop: %w", err)
	}
	return nil
}

func (r *PostgresShopRepository) scanOne(ctx context.Context, query string, arg any) (*models.Shop, error) {
	var shop models.Shop
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&shop.ID,
		&shop.Name,
		&shop.NIP,
		&shop.CreatedAt,
		&shop.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return &shop, nil
}
