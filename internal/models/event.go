package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type EventType string

const (
	EventPlastic  EventType = "plastic"
	EventAluminum EventType = "aluminum"
	EventGlass    EventType = "glass"
)

// EventTypes lists the closed set of categories in display order.
var EventTypes = []EventType{EventPlastic, EventAluminum, EventGlass}

// ParseEventType normalises a category tag. The uppercase names written by the
// first POS releases (PLASTIC, ALU, SZKLO) map onto the canonical values.
func ParseEventType(s string) (EventType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plastic":
		return EventPlastic, nil
	case "aluminum", "aluminium", "alu":
		return EventAluminum, nil
	case "glass", "szklo", "szkło":
		return EventGlass, nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

func (t EventType) Valid() bool {
	return t == EventPlastic || t == EventAluminum || t == EventGlass
}

// Event is a deposit-return recorded on a POS device and kept in the local store.
type Event struct {
	LocalID       int64     `json:"local_id"`
	Type          EventType `json:"type"`
	Timestamp     int64     `json:"ts"`
	Synced        bool      `json:"synced"`
	ClientEventID string    `json:"client_event_id,omitempty"`
}

func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Wire returns the representation pushed to the server.
func (e Event) Wire() WireEvent {
	return WireEvent{ClientEventID: e.ClientEventID, Type: e.Type, Timestamp: e.Timestamp}
}

// WireEvent is the canonical schema exchanged with the event endpoint.
type WireEvent struct {
	ClientEventID string    `json:"client_event_id"`
	Type          EventType `json:"type"`
	Timestamp     int64     `json:"ts"`
}

// UnmarshalJSON accepts the legacy camelCase id and legacy type names so that
// callers only ever see the canonical form.
func (w *WireEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		ClientEventID       json.RawMessage `json:"client_event_id"`
		LegacyClientEventID json.RawMessage `json:"clientEventId"`
		Type                string          `json:"type"`
		Timestamp           int64           `json:"ts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := idString(raw.ClientEventID)
	if err != nil {
		return err
	}
	if id == "" {
		if id, err = idString(raw.LegacyClientEventID); err != nil {
			return err
		}
	}

	w.ClientEventID = id
	w.Timestamp = raw.Timestamp
	w.Type = EventType(raw.Type)
	if t, err := ParseEventType(raw.Type); err == nil {
		w.Type = t
	}
	return nil
}

// idString reads an id that older clients sent either as a string or a number.
func idString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("client_event_id must be a string or number: %w", err)
	}
	return n.String(), nil
}

type PushRequest struct {
	Events []WireEvent `json:"events"`
}

// ErrCodeNoValidEvents is returned with 400 when every pushed item is invalid.
const ErrCodeNoValidEvents = "NO_VALID_EVENTS"

// PushResult reports how many pushed events were new to the server.
// Duplicates are a successful outcome. Rejected counts items the server
// dropped as invalid.
type PushResult struct {
	OK         bool   `json:"ok"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Rejected   int    `json:"rejected"`
	Error      string `json:"error,omitempty"`
}

type PullResponse struct {
	OK     bool        `json:"ok"`
	Events []WireEvent `json:"events"`
	Error  string      `json:"error,omitempty"`
}

// DayWindow is a half-open interval [From, To) in epoch milliseconds.
type DayWindow struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// DayWindowFor returns the calendar day containing t in t's location.
func DayWindowFor(t time.Time) DayWindow {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	end := time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
	return DayWindow{From: start.UnixMilli(), To: end.UnixMilli()}
}

func (w DayWindow) Contains(ts int64) bool {
	return ts >= w.From && ts < w.To
}

// Summary holds per-category counts for one day.
type Summary struct {
	Plastic  int64 `json:"plastic"`
	Aluminum int64 `json:"aluminum"`
	Glass    int64 `json:"glass"`
	Total    int64 `json:"total"`
}

func (s *Summary) Add(t EventType, n int64) {
	switch t {
	case EventPlastic:
		s.Plastic += n
	case EventAluminum:
		s.Aluminum += n
	case EventGlass:
		s.Glass += n
	default:
		return
	}
	s.Total += n
}

func (s Summary) Count(t EventType) int64 {
	switch t {
	case EventPlastic:
		return s.Plastic
	case EventAluminum:
		return s.Aluminum
	case EventGlass:
		return s.Glass
	}
	return 0
}

type DayRow struct {
	Day string `json:"day"`
	Summary
}

// StoredEvent is an event as persisted by the server.
type StoredEvent struct {
	ShopID        string    `json:"shop_id"`
	ClientEventID string    `json:"client_event_id"`
	Type          EventType `json:"type"`
	Timestamp     int64     `json:"ts"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
