package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const DefaultInterval = 20 * time.Second

// Trigger reasons.
const (
	ReasonTimer   = "timer"
	ReasonManual  = "manual"
	ReasonOnline  = "online"
	ReasonVisible = "visible"
)

// Runner drives a Reconciler from a periodic timer and external triggers.
// Triggers that arrive while a cycle is running are dropped.
type Runner struct {
	rec      *Reconciler
	interval time.Duration
	logger   *slog.Logger
	triggers chan string
	cycles   chan<- CycleResult
}

// CycleResult is emitted after each attempted cycle when a results channel
// is configured.
type CycleResult struct {
	Reason string
	Report CycleReport
	Err    error
}

type RunnerOption func(*Runner)

func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithResults delivers every cycle outcome to ch. Sends never block.
func WithResults(ch chan<- CycleResult) RunnerOption {
	return func(r *Runner) { r.cycles = ch }
}

func NewRunner(rec *Reconciler, opts ...RunnerOption) *Runner {
	r := &Runner{
		rec:      rec,
		interval: DefaultInterval,
		logger:   slog.Default(),
		triggers: make(chan string, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trigger requests a cycle. It never blocks; a trigger is coalesced with one
// that is already pending.
func (r *Runner) Trigger(reason string) {
	select {
	case r.triggers <- reason:
	default:
	}
}

// NotifyOnline reports connectivity changes and triggers a cycle when the
// device comes back online.
func (r *Runner) NotifyOnline(online bool) {
	if r.rec.SetOnline(online) {
		r.Trigger(ReasonOnline)
	}
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("sync runner started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("sync runner stopped")
			return ctx.Err()
		case <-ticker.C:
			if !r.rec.Online() {
				continue
			}
			r.run(ctx, ReasonTimer)
		case reason := <-r.triggers:
			r.run(ctx, reason)
		}
	}
}

func (r *Runner) run(ctx context.Context, reason string) {
	report, err := r.rec.Sync(ctx)
	if errors.Is(err, ErrCycleInProgress) {
		r.logger.Debug("sync trigger dropped", "reason", reason)
		return
	}
	if err != nil && !errors.Is(err, ErrCycleAborted) {
		r.logger.Error("sync cycle failed", "reason", reason, "error", err)
	}

	if r.cycles != nil {
		select {
		case r.cycles <- CycleResult{Reason: reason, Report: report, Err: err}:
		default:
		}
	}
}
