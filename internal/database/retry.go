package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	ConnectAttempts = 5
	ConnectBackoff  = 500 * time.Millisecond
)

// retry calls connect until it succeeds, doubling the wait between attempts.
func retry(ctx context.Context, name string, connect func(context.Context) error) error {
	wait := ConnectBackoff
	var err error
	for attempt := 1; attempt <= ConnectAttempts; attempt++ {
		if err = connect(ctx); err == nil {
			return nil
		}
		if attempt == ConnectAttempts {
			break
		}
		slog.Warn("backing store not reachable yet", "store", name, "attempt", attempt, "retry_in", wait, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("connecting to %s: %w", name, ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("%s unreachable after %d attempts: %w", name, ConnectAttempts, err)
}
