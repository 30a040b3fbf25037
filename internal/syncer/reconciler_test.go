package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/kaucjaflow/internal/localstore"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

var errOffline = errors.New("dial tcp: network is unreachable")

// fakeRemote is an in-memory event endpoint enforcing the
// (shop, client_event_id) uniqueness constraint for a single shop.
type fakeRemote struct {
	mu      sync.Mutex
	events  map[string]models.WireEvent
	batches [][]models.WireEvent
	pulls   int

	pushErr error
	pullErr error
	loseAck bool

	entered chan struct{}
	release chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{events: map[string]models.WireEvent{}}
}

func (f *fakeRemote) Push(ctx context.Context, events []models.WireEvent) (models.PushResult, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return models.PushResult{}, f.pushErr
	}
	f.batches = append(f.batches, events)

	var res models.PushResult
	res.OK = true
	for _, ev := range events {
		if _, ok := f.events[ev.ClientEventID]; ok {
			res.Duplicates++
			continue
		}
		f.events[ev.ClientEventID] = ev
		res.Inserted++
	}
	if f.loseAck {
		return models.PushResult{}, errOffline
	}
	return res, nil
}

func (f *fakeRemote) Pull(ctx context.Context, window models.DayWindow) ([]models.WireEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	var out []models.WireEvent
	for _, ev := range f.events {
		if window.Contains(ev.Timestamp) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeRemote) set(fn func(f *fakeRemote)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeRemote) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeRemote) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeRemote) forget(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, id)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, shopID string, opts ...localstore.Option) *localstore.Store {
	t.Helper()
	s, err := localstore.Open(context.Background(), t.TempDir(), shopID, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func appendEvents(t *testing.T, s *localstore.Store, types ...models.EventType) []models.Event {
	t.Helper()
	var out []models.Event
	for _, typ := range types {
		ev, err := s.Append(context.Background(), typ)
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func TestReconciler_Scenario(t *testing.T) {
	store := newTestStore(t, "S1")
	remote := newFakeRemote()
	rec := NewReconciler(store, remote, WithLogger(quietLogger()))
	ctx := context.Background()

	appendEvents(t, store, models.EventPlastic, models.EventAluminum, models.EventGlass)

	// First cycle pushes everything.
	report, err := rec.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Pushed)
	assert.Equal(t, 3, report.Inserted)
	assert.Equal(t, 0, report.Backfilled)

	today, err := store.ListToday(ctx)
	require.NoError(t, err)
	require.Len(t, today, 3)
	for _, ev := range today {
		assert.True(t, ev.Synced)
	}

	// Second cycle has nothing to push and nothing to backfill.
	report, err = rec.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Pushed)
	assert.Equal(t, 0, report.Backfilled)
	assert.Equal(t, 3, report.Pulled)
	assert.Equal(t, 1, remote.pushCount(), "only the first cycle should have pushed")
	assert.Equal(t, 3, remote.count())

	snap := rec.Snapshot()
	assert.Len(t, snap.Events, 3)
	assert.Equal(t, 0, snap.Unsynced)
	assert.True(t, snap.Online)
	assert.Equal(t, PhaseIdle.String(), snap.Phase)
	assert.Equal(t, PhaseIdle, rec.Phase())
}

func TestReconciler_IdempotentPush(t *testing.T) {
	remote := newFakeRemote()
	ctx := context.Background()
	batch := []models.WireEvent{
		{ClientEventID: "d-1", Type: models.EventPlastic, Timestamp: time.Now().UnixMilli()},
		{ClientEventID: "d-2", Type: models.EventGlass, Timestamp: time.Now().UnixMilli()},
	}

	first, err := remote.Push(ctx, batch)
	require.NoError(t, err)
	second, err := remote.Push(ctx, batch)
	require.NoError(t, err)

	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Duplicates)
	assert.Equal(t, 2, remote.count())
}

func TestReconciler_LostAckIsRetriedWithoutDuplicates(t *testing.T) {
	store := newTestStore(t, "S1")
	remote := newFakeRemote()
	rec := NewReconciler(store, remote, WithLogger(quietLogger()))
	ctx := context.Background()

	appendEvents(t, store, models.EventPlastic, models.EventPlastic)

	// The server stores the batch but the response never arrives.
	remote.set(func(f *fakeRemote) { f.loseAck = true })
	_, err := rec.Sync(ctx)
	require.ErrorIs(t, err, ErrCycleAborted)
	unsynced, err := store.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Len(t, unsynced, 2, "events stay unsynced without an acknowledgement")
	assert.False(t, rec.Online())

	remote.set(func(f *fakeRemote) { f.loseAck = false })
	report, err := rec.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Pushed)
	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, 2, remote.count(), "retry must not double count")
	assert.True(t, rec.Online())
}

func TestReconciler_NoDataLossAcrossOfflinePeriod(t *testing.T) {
	store := newTestStore(t, "S1")
	remote := newFakeRemote()
	rec := NewReconciler(store, remote, WithLogger(quietLogger()))
	ctx := context.Background()

	remote.set(func(f *fakeRemote) { f.pushErr = errOffline })
	var recorded []models.Event
	for i := 0; i < 4; i++ {
		recorded = append(recorded, appendEvents(t, store, models.EventGlass)...)
		_, err := rec.Sync(ctx)
		require.ErrorIs(t, err, ErrCycleAborted)
	}
	assert.Equal(t, 4, rec.Snapshot().Unsynced)
	assert.NotEmpty(t, rec.Snapshot().LastError)

	remote.set(func(f *fakeRemote) { f.pushErr = nil })
	_, err := rec.Sync(ctx)
	require.NoError(t, err)

	require.Equal(t, len(recorded), remote.count())
	for _, ev := range recorded {
		remote.mu.Lock()
		_, ok := remote.events[ev.ClientEventID]
		remote.mu.Unlock()
		assert.True(t, ok, "event %s missing on server", ev.ClientEventID)
	}
	assert.Empty(t, rec.Snapshot().LastError)
}

func TestReconciler_PullInsertsOtherDevicesEvents(t *testing.T) {
	store := newTestStore(t, "S1")
	remote := newFakeRemote()
	rec := NewReconciler(store, remote, WithLogger(quietLogger()))
	ctx := context.Background()

	local := appendEvents(t, store, models.EventPlastic)
	now := time.Now().UnixMilli()
	remote.set(func(f *fakeRemote) {
		f.events["tablet-7"] = models.WireEvent{ClientEventID: "tablet-7", Type: models.EventAluminum, Timestamp: now}
		f.events["tablet-8"] = models.WireEvent{ClientEventID: "tablet-8", Type: models.EventGlass, Timestamp: now}
	})

	report, err := rec.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Downloaded)

	report, err = rec.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Downloaded, "repeated pulls insert nothing")

	today, err := store.ListToday(ctx)
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, ev := range today {
		ids[ev.ClientEventID] = true
	}
	assert.Equal(t, map[string]bool{local[0].ClientEventID: true, "tablet-7": true, "tablet-8": true}, ids)
}

func TestReconciler_BackfillConvergence(t *testing.T) {
	store := newTestStore(t, "S1")
	remote := newFakeRemote()
	rec := NewReconciler(store, remote, WithLogger(quietLogger()))
	ctx := context.Background()

	events := appendEvents(t, store, models.EventPlastic, models.EventGlass)
	_, err := rec.Sync(ctx)
	require.NoError(t, err)

	// The server loses one acknowledged event.
	remote.forget(events[1].ClientEventID)
	require.Equal(t, 1, remote.count())

	report, err := rec.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Pushed)
	assert.Equal(t, 1, report.Backfilled)
	assert.Equal(t, 2, remote.count())

	pulled, err := remote.Pull(ctx, models.DayWindowFor(store.Now()))
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, ev := range pulled {
		ids[ev.ClientEventID] = true
	}
	assert.True(t, ids[events[1].ClientEventID])

	report, err = rec.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Backfilled)
}

func TestReconciler_PullFailureAbortsBeforeBackfill(t *testing.T) {
	store := newTestStore(t, "S1")
	remote := newFakeRemote()
	rec := NewReconciler(store, remote, WithLogger(quietLogger()))
	ctx := context.Background()

	appendEvents(t, store, models.EventAluminum)
	remote.set(func(f *fakeRemote) { f.pullErr = errOffline })

	report, err := rec.Sync(ctx)

	require.ErrorIs(t, err, ErrCycleAborted)
	assert.ErrorIs(t, err, errOffline)
	assert.Equal(t, 1, report.Pushed, "push completed before the pull failed")
	assert.Equal(t, 0, report.Backfilled)
	assert.Equal(t, 1, remote.pushCount())
	assert.Equal(t, PhaseIdle, rec.Phase())

	unsynced, err := store.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestReconciler_RejectsConcurrentCycle(t *testing.T) {
	store := newTestStore(t, "S1")
	remote := newFakeRemote()
	remote.entered = make(chan struct{})
	remote.release = make(chan struct{})
	rec := NewReconciler(store, remote, WithLogger(quietLogger()))
	ctx := context.Background()

	appendEvents(t, store, models.EventPlastic)

	done := make(chan error, 1)
	go func() {
		_, err := rec.Sync(ctx)
		done <- err
	}()

	<-remote.entered
	assert.Equal(t, PhasePushing, rec.Phase())

	_, err := rec.Sync(ctx)
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(remote.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, remote.pushCount(), "the dropped trigger must not push")
}

func TestReconciler_PushesInBatches(t *testing.T) {
	store := newTestStore(t, "S1")
	remote := newFakeRemote()
	rec := NewReconciler(store, remote, WithLogger(quietLogger()), WithBatchSize(2))
	ctx := context.Background()

	appendEvents(t, store,
		models.EventPlastic, models.EventPlastic, models.EventGlass,
		models.EventGlass, models.EventAluminum,
	)

	report, err := rec.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Pushed)
	assert.Equal(t, 3, remote.pushCount())
	assert.Equal(t, 5, remote.count())
}

func TestReconciler_LocalStoreErrorIsNotAnAbort(t *testing.T) {
	store := newTestStore(t, "S1")
	remote := newFakeRemote()
	rec := NewReconciler(store, remote, WithLogger(quietLogger()))
	require.NoError(t, store.Close())

	_, err := rec.Sync(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCycleAborted)
	assert.True(t, rec.Online(), "a local failure says nothing about connectivity")
}

func TestReconciler_RefusedRequestKeepsOnline(t *testing.T) {
	// ARRANGE
	store := newTestStore(t, "S1")
	remote := newFakeRemote()
	rec := NewReconciler(store, remote, WithLogger(quietLogger()))
	appendEvents(t, store, models.EventPlastic)
	remote.set(func(f *fakeRemote) {
		f.pushErr = &StatusError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED"}
	})

	// ACT
	_, err := rec.Sync(context.Background())

	// ASSERT
	require.ErrorIs(t, err, ErrCycleAborted)
	assert.True(t, rec.Online(), "a server that answered is reachable")
	unsynced, err := store.ListUnsynced(context.Background())
	require.NoError(t, err)
	assert.Len(t, unsynced, 1)

	remote.set(func(f *fakeRemote) { f.pushErr = errOffline })
	_, err = rec.Sync(context.Background())
	require.ErrorIs(t, err, ErrCycleAborted)
	assert.False(t, rec.Online())
}

func TestReconciler_WhollyRejectedBatchDoesNotBlockSync(t *testing.T) {
	// ARRANGE
	store := newTestStore(t, "S1")
	remote := newFakeRemote()
	rec := NewReconciler(store, remote, WithLogger(quietLogger()))
	ctx := context.Background()
	appendEvents(t, store, models.EventPlastic, models.EventGlass)
	remote.set(func(f *fakeRemote) {
		f.pushErr = &StatusError{StatusCode: http.StatusBadRequest, Code: models.ErrCodeNoValidEvents}
	})

	// ACT
	report, err := rec.Sync(ctx)

	// ASSERT
	require.NoError(t, err)
	assert.Equal(t, 2, report.Pushed)
	assert.Equal(t, 1, remote.pulls, "pull still runs after a rejected batch")
	assert.Equal(t, 2, report.Backfilled)
	assert.Equal(t, 4, report.Rejected)
	unsynced, err := store.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced, "rejected events must not be pushed again as unsynced")
	assert.True(t, rec.Online())
}

func TestMissingOnServer(t *testing.T) {
	local := []models.Event{
		{LocalID: 1, Synced: true, ClientEventID: "a"},
		{LocalID: 2, Synced: true, ClientEventID: "b"},
		{LocalID: 3, Synced: false, ClientEventID: "c"},
	}
	server := []models.WireEvent{{ClientEventID: "a"}}

	missing := missingOnServer(local, server)

	require.Len(t, missing, 1)
	assert.Equal(t, "b", missing[0].ClientEventID)
}
