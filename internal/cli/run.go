package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/prudhvinik1/kaucjaflow/internal/syncer"
)

const defaultProbeInterval = 5 * time.Second

func newRunCommand(opts *RootOptions) *cobra.Command {
	var probe time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep syncing in the background until interrupted",
		Long: `Run the sync loop: a cycle every sync_interval while the server is
reachable, one immediately when it comes back, and one on SIGUSR1.

Stop with Ctrl+C.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			results := make(chan syncer.CycleResult, 8)
			rec := syncer.NewReconciler(a.store, a.remote, syncer.WithLogger(slog.Default()))
			runner := syncer.NewRunner(rec,
				syncer.WithInterval(a.cfg.SyncInterval),
				syncer.WithRunnerLogger(slog.Default()),
				syncer.WithResults(results),
			)

			go watchConnectivity(ctx, a.remote, runner, probe)
			go forwardManualTriggers(ctx, runner)
			go printResults(ctx, newFormatter(cmd, opts), results)

			runner.Trigger(syncer.ReasonManual)
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return WrapExitError(ExitCommandError, "sync loop failed", err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&probe, "probe", defaultProbeInterval, "how often to check whether the server is reachable")
	return cmd
}

// watchConnectivity pings the server and reports reachability to the runner.
func watchConnectivity(ctx context.Context, remote *syncer.HTTPRemote, runner *syncer.Runner, every time.Duration) {
	if every <= 0 {
		every = defaultProbeInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runner.NotifyOnline(remote.Ping(ctx))
		}
	}
}

func forwardManualTriggers(ctx context.Context, runner *syncer.Runner) {
	sig := make(chan os.Signal, 1)
	notifyManual(sig)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			runner.Trigger(syncer.ReasonManual)
		}
	}
}

func printResults(ctx context.Context, f *OutputFormatter, results <-chan syncer.CycleResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-results:
			if res.Err != nil {
				_ = f.Success(cycleView{Reason: res.Reason, Error: res.Err.Error()}, func(p *message.Printer, w io.Writer) {
					p.Fprintf(w, "[%s] sync failed: %v\n", res.Reason, res.Err)
				})
				continue
			}
			_ = f.Success(cycleView{Reason: res.Reason, Report: &res.Report}, func(p *message.Printer, w io.Writer) {
				writeReport(p, w, res.Report)
			})
		}
	}
}

type cycleView struct {
	Reason string              `json:"reason"`
	Report *syncer.CycleReport `json:"report,omitempty"`
	Error  string              `json:"error,omitempty"`
}
