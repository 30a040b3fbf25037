// Package syncer reconciles a shop's local event log with the remote event
// endpoint.
//
// A cycle pushes unsynced events, pulls the server's view of the day, inserts
// what is missing locally and re-pushes synced events the server does not
// report. Every step is idempotent on the client event id, so a cycle aborted
// at any point is simply retried from the start by the next trigger. This only
// holds because events are immutable facts keyed by a client-assigned unique
// id; no locking is used between devices.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prudhvinik1/kaucjaflow/internal/localstore"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

var (
	ErrCycleInProgress = errors.New("sync cycle already in progress")
	ErrCycleAborted    = errors.New("sync cycle aborted")
)

const DefaultBatchSize = 500

// LocalStore is the part of localstore.Store the reconciler drives.
type LocalStore interface {
	ListUnsynced(ctx context.Context) ([]models.Event, error)
	ListToday(ctx context.Context) ([]models.Event, error)
	MarkSynced(ctx context.Context, localIDs []int64) error
	UpsertFromServer(ctx context.Context, serverEvents []models.WireEvent) (localstore.UpsertResult, error)
	Now() time.Time
}

// Remote is the server side of the protocol. Push must treat
// (shop, client_event_id) as unique and report duplicates as success.
type Remote interface {
	Push(ctx context.Context, events []models.WireEvent) (models.PushResult, error)
	Pull(ctx context.Context, window models.DayWindow) ([]models.WireEvent, error)
}

type Phase int32

const (
	PhaseIdle Phase = iota
	PhasePushing
	PhasePulling
	PhaseBackfilling
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePushing:
		return "pushing"
	case PhasePulling:
		return "pulling"
	case PhaseBackfilling:
		return "backfilling"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// CycleReport summarises one sync cycle.
type CycleReport struct {
	Pushed     int           `json:"pushed"`
	Inserted   int           `json:"inserted"`
	Duplicates int           `json:"duplicates"`
	Pulled     int           `json:"pulled"`
	Downloaded int           `json:"downloaded"`
	Backfilled int           `json:"backfilled"`
	Rejected   int           `json:"rejected"`
	Duration   time.Duration `json:"duration"`
}

// Snapshot is the view shown next to the POS buttons.
type Snapshot struct {
	Events    []models.Event `json:"events"`
	Unsynced  int            `json:"unsynced"`
	Online    bool           `json:"online"`
	Phase     string         `json:"phase"`
	LastSync  time.Time      `json:"last_sync,omitempty"`
	LastError string         `json:"last_error,omitempty"`
}

type Reconciler struct {
	store     LocalStore
	remote    Remote
	logger    *slog.Logger
	batchSize int

	running atomic.Bool
	phase   atomic.Int32
	online  atomic.Bool

	mu       sync.RWMutex
	snapshot Snapshot
	onChange func(Snapshot)
}

type Option func(*Reconciler)

func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

func WithBatchSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithSnapshotHook is called after every refresh of the snapshot.
func WithSnapshotHook(fn func(Snapshot)) Option {
	return func(r *Reconciler) { r.onChange = fn }
}

func NewReconciler(store LocalStore, remote Remote, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:     store,
		remote:    remote,
		logger:    slog.Default(),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.online.Store(true)
	return r
}

func (r *Reconciler) Phase() Phase {
	return Phase(r.phase.Load())
}

func (r *Reconciler) Online() bool {
	return r.online.Load()
}

// SetOnline records connectivity reported by the environment. It returns true
// when the device just came back online.
func (r *Reconciler) SetOnline(online bool) bool {
	was := r.online.Swap(online)
	return online && !was
}

func (r *Reconciler) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Sync runs one push, pull and backfill cycle. A call made while another
// cycle is running returns ErrCycleInProgress without doing anything.
// Remote failures abort the cycle with ErrCycleAborted; local store failures
// are returned unwrapped by the cycle logic.
func (r *Reconciler) Sync(ctx context.Context) (CycleReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		return CycleReport{}, ErrCycleInProgress
	}
	defer r.running.Store(false)

	start := time.Now()
	report, err := r.cycle(ctx)
	report.Duration = time.Since(start)
	failedIn := r.Phase()
	r.setPhase(PhaseIdle)

	if errors.Is(err, ErrCycleAborted) {
		// A server that answered is reachable even when it refused the request.
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			r.online.Store(false)
		}
		r.logger.Warn("sync cycle aborted", "error", err, "phase", failedIn.String())
	} else if err == nil {
		r.online.Store(true)
		r.logger.Info("sync cycle complete",
			"pushed", report.Pushed,
			"inserted", report.Inserted,
			"downloaded", report.Downloaded,
			"backfilled", report.Backfilled,
			"duration", report.Duration,
		)
	}

	refreshErr := r.refresh(ctx, func(snap *Snapshot) {
		if err != nil {
			snap.LastError = err.Error()
			return
		}
		snap.LastError = ""
		snap.LastSync = r.store.Now()
	})
	if err == nil {
		err = refreshErr
	}
	return report, err
}

func (r *Reconciler) cycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	// Push
	r.setPhase(PhasePushing)
	unsynced, err := r.store.ListUnsynced(ctx)
	if err != nil {
		return report, err
	}
	if err := r.push(ctx, unsynced, &report); err != nil {
		return report, err
	}
	report.Pushed = len(unsynced)

	// Pull
	r.setPhase(PhasePulling)
	window := models.DayWindowFor(r.store.Now())
	serverEvents, err := r.remote.Pull(ctx, window)
	if err != nil {
		return report, fmt.Errorf("%w: pull: %w", ErrCycleAborted, err)
	}
	report.Pulled = len(serverEvents)

	upserted, err := r.store.UpsertFromServer(ctx, serverEvents)
	if err != nil {
		return report, err
	}
	report.Downloaded = upserted.Inserted

	// Backfill
	r.setPhase(PhaseBackfilling)
	today, err := r.store.ListToday(ctx)
	if err != nil {
		return report, err
	}
	missing := missingOnServer(today, serverEvents)
	if len(missing) > 0 {
		r.logger.Info("re-sending events missing on server", "count", len(missing))
		if err := r.send(ctx, missing, &report); err != nil {
			return report, err
		}
	}
	report.Backfilled = len(missing)

	return report, nil
}

// push sends unsynced events in batches and marks each batch synced once the
// server acknowledged it. A batch the server rejected as wholly invalid is
// marked synced too so it cannot block later cycles.
func (r *Reconciler) push(ctx context.Context, events []models.Event, report *CycleReport) error {
	for start := 0; start < len(events); start += r.batchSize {
		end := min(start+r.batchSize, len(events))
		batch := events[start:end]

		if err := r.send(ctx, batch, report); err != nil {
			return err
		}

		ids := make([]int64, len(batch))
		for i, ev := range batch {
			ids[i] = ev.LocalID
		}
		if err := r.store.MarkSynced(ctx, ids); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) send(ctx context.Context, events []models.Event, report *CycleReport) error {
	for start := 0; start < len(events); start += r.batchSize {
		end := min(start+r.batchSize, len(events))

		wire := make([]models.WireEvent, 0, end-start)
		for _, ev := range events[start:end] {
			wire = append(wire, ev.Wire())
		}

		res, err := r.remote.Push(ctx, wire)
		if rejectedBatch(err) {
			// The server refuses these items on every retry.
			r.logger.Warn("server rejected every event in batch", "count", len(wire), "first", wire[0].ClientEventID)
			report.Rejected += len(wire)
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: push: %w", ErrCycleAborted, err)
		}
		report.Inserted += res.Inserted
		report.Duplicates += res.Duplicates
		report.Rejected += res.Rejected
	}
	return nil
}

// rejectedBatch reports whether err means the server found no valid item in
// the batch, as opposed to being unreachable or refusing the session.
func rejectedBatch(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) &&
		statusErr.StatusCode == http.StatusBadRequest &&
		statusErr.Code == models.ErrCodeNoValidEvents
}

// missingOnServer returns the synced local events the server did not report.
func missingOnServer(local []models.Event, server []models.WireEvent) []models.Event {
	known := make(map[string]struct{}, len(server))
	for _, se := range server {
		if se.ClientEventID != "" {
			known[se.ClientEventID] = struct{}{}
		}
	}

	var missing []models.Event
	for _, ev := range local {
		if !ev.Synced || ev.ClientEventID == "" {
			continue
		}
		if _, ok := known[ev.ClientEventID]; !ok {
			missing = append(missing, ev)
		}
	}
	return missing
}

// Refresh re-reads today's events and publishes a new snapshot.
func (r *Reconciler) Refresh(ctx context.Context) error {
	return r.refresh(ctx, nil)
}

func (r *Reconciler) refresh(ctx context.Context, update func(*Snapshot)) error {
	today, err := r.store.ListToday(ctx)
	if err != nil {
		return err
	}

	unsynced := 0
	for _, ev := range today {
		if !ev.Synced {
			unsynced++
		}
	}

	r.mu.Lock()
	r.snapshot.Events = today
	r.snapshot.Unsynced = unsynced
	r.snapshot.Online = r.online.Load()
	r.snapshot.Phase = r.Phase().String()
	if update != nil {
		update(&r.snapshot)
	}
	snap := r.snapshot
	r.mu.Unlock()

	if r.onChange != nil {
		r.onChange(snap)
	}
	return nil
}

func (r *Reconciler) setPhase(p Phase) {
	r.phase.Store(int32(p))
}
