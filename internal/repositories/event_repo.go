package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// InsertBatch stores events for a shop and returns how many rows were new.
// Events already present under the same client id are skipped, which makes
// re-pushing a batch after a lost acknowledgement harmless.
func (r *PostgresEventRepository) InsertBatch(ctx context.Context, shopID, createdBy uuid.UUID, events []models.WireEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	query := `INSERT INTO events (shop_id, client_event_id, type, ts, created_by)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (shop_id, client_event_id) DO NOTHING`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(query, shopID, e.ClientEventID, string(e.Type), e.Timestamp, createdBy)
	}

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range events {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to insert event: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit events: %w", err)
	}
	return inserted, nil
}

// ListRange returns the shop's events with ts in [From, To), newest first.
func (r *PostgresEventRepository) ListRange(ctx context.Context, shopID uuid.UUID, window models.DayWindow) ([]models.StoredEvent, error) {
	query := `SELECT shop_id::text, client_event_id, type, ts, COALESCE(created_by::text, ''), created_at
	          FROM events
	          WHERE shop_id = $1 AND ts >= $2 AND ts < $3
	          ORDER BY ts DESC, client_event_id`

	rows, err := r.pool.Query(ctx, query, shopID, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []models.StoredEvent{}
	for rows.Next() {
		var e models.StoredEvent
		var typ string
		if err := rows.Scan(&e.ShopID, &e.ClientEventID, &typ, &e.Timestamp, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = models.EventType(typ)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func (r *PostgresEventRepository) CountByType(ctx context.Context, shopID uuid.UUID, window models.DayWindow) (models.Summary, error) {
	query := `SELECT type, COUNT(*)
	          FROM events
	          WHERE shop_id = $1 AND ts >= $2 AND ts < $3
	          GROUP BY type`

	var summary models.Summary
	rows, err := r.pool.Query(ctx, query, shopID, window.From, window.To)
	if err != nil {
		return summary, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return summary, fmt.Errorf("failed to scan count: %w", err)
		}
		summary.Add(models.EventType(typ), n)
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("failed to iterate counts: %w", err)
	}
	return summary, nil
}

// CountByDay groups the window by UTC calendar day. Days without events are
// not returned.
func (r *PostgresEventRepository) CountByDay(ctx context.Context, shopID uuid.UUID, window models.DayWindow) ([]models.DayRow, error) {
	query := `SELECT to_char(to_timestamp(ts / 1000.0) AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, type, COUNT(*)
	          FROM events
	          WHERE shop_id = $1 AND ts >= $2 AND ts < $3
	          GROUP BY day, type
	          ORDER BY day`

	rows, err := r.pool.Query(ctx, query, shopID, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by day: %w", err)
	}
	defer rows.Close()

	days := []models.DayRow{}
	for rows.Next() {
		var day, typ string
		var n int64
		if err := rows.Scan(&day, &typ, &n); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		if len(days) == 0 || days[len(days)-1].Day != day {
			days = append(days, models.DayRow{Day: day})
		}
		days[len(days)-1].Add(models.EventType(typ), n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate day counts: %w", err)
	}
	return days, nil
}
