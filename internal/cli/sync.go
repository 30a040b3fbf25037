package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/prudhvinik1/kaucjaflow/internal/syncer"
)

func newSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle against the server",
		Long: `Push unsent events, pull today's events of the shop and re-send any of
today's events the server is missing.

Exits with code 1 when the server cannot be reached; events stay in the
local log and are sent on a later sync.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			rec := syncer.NewReconciler(a.store, a.remote, syncer.WithLogger(slog.Default()))
			report, err := rec.Sync(cmd.Context())
			if errors.Is(err, syncer.ErrCycleAborted) {
				return WrapExitError(ExitFailure, "sync aborted, events kept locally", err)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "sync failed", err)
			}

			return newFormatter(cmd, opts).Success(report, func(p *message.Printer, w io.Writer) {
				writeReport(p, w, report)
			})
		},
	}
}

func writeReport(p *message.Printer, w io.Writer, r syncer.CycleReport) {
	p.Fprintf(w, "Synced: pushed %d (new %d, duplicates %d), downloaded %d, re-sent %d\n",
		r.Pushed, r.Inserted, r.Duplicates, r.Downloaded, r.Backfilled)
}
