// Package repotest provides in-memory repositories for tests of the layers
// above the database.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
	"github.com/prudhvinik1/kaucjaflow/internal/repositories"
)

// Store backs every repository with maps guarded by a single mutex.
type Store struct {
	mu        sync.Mutex
	shops     map[uuid.UUID]*models.Shop
	users     map[uuid.UUID]*models.User
	events    map[uuid.UUID]map[string]models.StoredEvent
	sessions  map[string]*models.Session
	tokens    map[string]*models.MagicToken
	cooldowns map[string]bool
	presence  map[uuid.UUID]map[string]models.Presence

	// Now is used for timestamps; defaults to time.Now.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		shops:     map[uuid.UUID]*models.Shop{},
		users:     map[uuid.UUID]*models.User{},
		events:    map[uuid.UUID]map[string]models.StoredEvent{},
		sessions:  map[string]*models.Session{},
		tokens:    map[string]*models.MagicToken{},
		cooldowns: map[string]bool{},
		presence:  map[uuid.UUID]map[string]models.Presence{},
		Now:       time.Now,
	}
}

func (s *Store) Shops() *ShopRepository        { return &ShopRepository{s} }
func (s *Store) Users() *UserRepository        { return &UserRepository{s} }
func (s *Store) Events() *EventRepository      { return &EventRepository{s} }
func (s *Store) Sessions() *SessionRepository  { return &SessionRepository{s} }
func (s *Store) Tokens() *MagicTokenRepository { return &MagicTokenRepository{s} }
func (s *Store) Presence() *PresenceRepository { return &PresenceRepository{s} }

// Token returns the most recently created login token for email.
func (s *Store) Token(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best string
	var at time.Time
	for tok, mt := range s.tokens {
		if mt.Email == strings.ToLower(email) && !mt.CreatedAt.Before(at) {
			best, at = tok, mt.CreatedAt
		}
	}
	return best, best != ""
}

// ResetCooldowns clears every login link cooldown.
func (s *Store) ResetCooldowns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns = map[string]bool{}
}

type ShopRepository struct{ s *Store }

func (r *ShopRepository) Create(ctx context.Context, shop *models.Shop) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.createLocked(shop)
}

func (r *ShopRepository) createLocked(shop *models.Shop) error {
	for _, existing := range r.s.shops {
		if existing.Name == shop.Name {
			return repositories.ErrConflict
		}
	}
	shop.ID = uuid.New()
	shop.CreatedAt = r.s.Now()
	cp := *shop
	r.s.shops[shop.ID] = &cp
	return nil
}

func (r *ShopRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	shop, ok := r.s.shops[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *shop
	return &cp, nil
}

func (r *ShopRepository) GetByName(ctx context.Context, name string) (*models.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, shop := range r.s.shops {
		if shop.Name == name {
			cp := *shop
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *ShopRepository) GetOrCreateByName(ctx context.Context, name string) (*models.Shop, error) {
	if shop, err := r.GetByName(ctx, name); err == nil {
		return shop, nil
	}
	shop := &models.Shop{Name: name}
	if err := r.Create(ctx, shop); err != nil {
		return nil, err
	}
	return shop, nil
}

func (r *ShopRepository) Update(ctx context.Context, shop *models.Shop) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.shops[shop.ID]; !ok {
		return repositories.ErrNotFound
	}
	for id, existing := range r.s.shops {
		if id != shop.ID && existing.Name == shop.Name {
			return repositories.ErrConflict
		}
	}
	now := r.s.Now()
	shop.UpdatedAt = &now
	cp := *shop
	r.s.shops[shop.ID] = &cp
	return nil
}

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	user.ID = uuid.New()
	user.Active = true
	user.CreatedAt = r.s.Now()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Email == strings.ToLower(email) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

type EventRepository struct{ s *Store }

func (r *EventRepository) InsertBatch(ctx context.Context, shopID, createdBy uuid.UUID, events []models.WireEvent) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	shopEvents := r.s.events[shopID]
	if shopEvents == nil {
		shopEvents = map[string]models.StoredEvent{}
		r.s.events[shopID] = shopEvents
	}
	inserted := 0
	for _, e := range events {
		if _, dup := shopEvents[e.ClientEventID]; dup {
			continue
		}
		shopEvents[e.ClientEventID] = models.StoredEvent{
			ShopID:        shopID.String(),
			ClientEventID: e.ClientEventID,
			Type:          e.Type,
			Timestamp:     e.Timestamp,
			CreatedBy:     createdBy.String(),
			CreatedAt:     r.s.Now(),
		}
		inserted++
	}
	return inserted, nil
}

func (r *EventRepository) ListRange(ctx context.Context, shopID uuid.UUID, window models.DayWindow) ([]models.StoredEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.StoredEvent{}
	for _, e := range r.s.events[shopID] {
		if window.Contains(e.Timestamp) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ClientEventID < out[j].ClientEventID
	})
	return out, nil
}

func (r *EventRepository) CountByType(ctx context.Context, shopID uuid.UUID, window models.DayWindow) (models.Summary, error) {
	events, _ := r.ListRange(ctx, shopID, window)
	var summary models.Summary
	for _, e := range events {
		summary.Add(e.Type, 1)
	}
	return summary, nil
}

func (r *EventRepository) CountByDay(ctx context.Context, shopID uuid.UUID, window models.DayWindow) ([]models.DayRow, error) {
	events, _ := r.ListRange(ctx, shopID, window)
	byDay := map[string]*models.DayRow{}
	var days []string
	for _, e := range events {
		day := time.UnixMilli(e.Timestamp).UTC().Format("2006-01-02")
		row, ok := byDay[day]
		if !ok {
			row = &models.DayRow{Day: day}
			byDay[day] = row
			days = append(days, day)
		}
		row.Add(e.Type, 1)
	}
	sort.Strings(days)
	out := make([]models.DayRow, 0, len(days))
	for _, d := range days {
		out = append(out, *byDay[d])
	}
	return out, nil
}

type SessionRepository struct{ s *Store }

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *session
	r.s.sessions[session.ID] = &cp
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok || r.s.Now().After(session.ExpiresAt) {
		return nil, repositories.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (r *SessionRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Session
	for _, session := range r.s.sessions {
		if session.UserID == userID {
			cp := *session
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.sessions, id)
	return nil
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, session := range r.s.sessions {
		if session.UserID == userID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

type MagicTokenRepository struct{ s *Store }

func (r *MagicTokenRepository) Create(ctx context.Context, token string, mt *models.MagicToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *mt
	r.s.tokens[token] = &cp
	return nil
}

func (r *MagicTokenRepository) Consume(ctx context.Context, token string) (*models.MagicToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	mt, ok := r.s.tokens[token]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	delete(r.s.tokens, token)
	return mt, nil
}

func (r *MagicTokenRepository) AcquireCooldown(ctx context.Context, email string, ttl time.Duration) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := strings.ToLower(email)
	if r.s.cooldowns[key] {
		return false, nil
	}
	r.s.cooldowns[key] = true
	return true, nil
}

type PresenceRepository struct{ s *Store }

func (r *PresenceRepository) SetPresence(ctx context.Context, presence *models.Presence) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	presence.LastSeen = r.s.Now()
	presence.Status = string(models.StatusOnline)
	devices := r.s.presence[presence.ShopID]
	if devices == nil {
		devices = map[string]models.Presence{}
		r.s.presence[presence.ShopID] = devices
	}
	devices[presence.DeviceID] = *presence
	return nil
}

func (r *PresenceRepository) GetPresence(ctx context.Context, shopID uuid.UUID, deviceID string) (*models.Presence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.presence[shopID][deviceID]; ok {
		return &p, nil
	}
	return &models.Presence{ShopID: shopID, DeviceID: deviceID, Status: string(models.StatusOffline)}, nil
}

func (r *PresenceRepository) GetShopPresence(ctx context.Context, shopID uuid.UUID) ([]models.Presence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Presence{}
	for _, p := range r.s.presence[shopID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

var (
	_ repositories.ShopRepository       = (*ShopRepository)(nil)
	_ repositories.UserRepository       = (*UserRepository)(nil)
	_ repositories.EventRepository      = (*EventRepository)(nil)
	_ repositories.SessionRepository    = (*SessionRepository)(nil)
	_ repositories.MagicTokenRepository = (*MagicTokenRepository)(nil)
	_ repositories.PresenceRepository   = (*PresenceRepository)(nil)
)
