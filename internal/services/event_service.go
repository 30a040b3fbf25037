package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/kaucjaflow/internal/metrics"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
	"github.com/prudhvinik1/kaucjaflow/internal/repositories"
)

// MaxReportDays bounds the by-day report range.
const MaxReportDays = 366

const dayLayout = "2006-01-02"

var (
	ErrNoValidEvents = errors.New("no valid events")
	ErrInvalidRange  = errors.New("invalid date range")
)

type EventService struct {
	events repositories.EventRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewEventService(events repositories.EventRepository, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{events: events, logger: logger, now: time.Now}
}

// Push validates a batch from a device and stores it for the caller's shop.
// Items without a client id, with an unknown type or a non-positive
// timestamp are dropped and counted as rejected. Already stored items count
// as duplicates.
func (s *EventService) Push(ctx context.Context, claims *TokenClaims, events []models.WireEvent) (models.PushResult, error) {
	valid := make([]models.WireEvent, 0, len(events))
	for _, e := range events {
		if e.ClientEventID == "" || !e.Type.Valid() || e.Timestamp <= 0 {
			continue
		}
		valid = append(valid, e)
	}
	rejected := len(events) - len(valid)
	if rejected > 0 {
		metrics.EventsRejectedTotal.Add(float64(rejected))
	}
	if len(valid) == 0 {
		return models.PushResult{Rejected: rejected, Error: models.ErrCodeNoValidEvents}, ErrNoValidEvents
	}

	inserted, err := s.events.InsertBatch(ctx, claims.ShopID, claims.UserID, valid)
	if err != nil {
		return models.PushResult{}, fmt.Errorf("failed to store events: %w", err)
	}
	duplicates := len(valid) - inserted

	metrics.EventsInsertedTotal.Add(float64(inserted))
	metrics.EventsDuplicateTotal.Add(float64(duplicates))
	s.logger.DebugContext(ctx, "events pushed",
		"shop_id", claims.ShopID, "received", len(events), "inserted", inserted, "duplicates", duplicates, "rejected", rejected)

	return models.PushResult{OK: true, Inserted: inserted, Duplicates: duplicates, Rejected: rejected}, nil
}

// Pull returns the shop's events inside window, newest first. A zero window
// means the current UTC day.
func (s *EventService) Pull(ctx context.Context, shopID uuid.UUID, window models.DayWindow) ([]models.WireEvent, error) {
	if window == (models.DayWindow{}) {
		window = models.DayWindowFor(s.now().UTC())
	}
	if window.To <= window.From {
		return nil, ErrInvalidRange
	}

	stored, err := s.events.ListRange(ctx, shopID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	out := make([]models.WireEvent, len(stored))
	for i, e := range stored {
		out[i] = models.WireEvent{ClientEventID: e.ClientEventID, Type: e.Type, Timestamp: e.Timestamp}
	}
	return out, nil
}

// Summary counts the shop's events per type on a UTC day. An empty or
// malformed day falls back to today.
func (s *EventService) Summary(ctx context.Context, shopID uuid.UUID, day string) (string, models.Summary, error) {
	day, window := s.dayWindow(day)
	summary, err := s.events.CountByType(ctx, shopID, window)
	if err != nil {
		return day, models.Summary{}, fmt.Errorf("failed to summarise events: %w", err)
	}
	return day, summary, nil
}

// ByDay returns per-day counts for the inclusive UTC range [from, to] and
// the totals over the range.
func (s *EventService) ByDay(ctx context.Context, shopID uuid.UUID, from, to string) ([]models.DayRow, models.Summary, error) {
	var totals models.Summary

	start, err := time.Parse(dayLayout, from)
	if err != nil {
		return nil, totals, ErrInvalidRange
	}
	end, err := time.Parse(dayLayout, to)
	if err != nil || end.Before(start) || end.Sub(start) >= MaxReportDays*24*time.Hour {
		return nil, totals, ErrInvalidRange
	}

	window := models.DayWindow{From: start.UnixMilli(), To: end.AddDate(0, 0, 1).UnixMilli()}
	rows, err := s.events.CountByDay(ctx, shopID, window)
	if err != nil {
		return nil, totals, fmt.Errorf("failed to count events by day: %w", err)
	}

	for _, r := range rows {
		for _, t := range models.EventTypes {
			totals.Add(t, r.Count(t))
		}
	}
	return rows, totals, nil
}

func (s *EventService) dayWindow(day string) (string, models.DayWindow) {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		t = s.now().UTC()
	}
	return t.Format(dayLayout), models.DayWindowFor(t)
}
