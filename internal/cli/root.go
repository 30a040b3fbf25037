// Package cli implements kf-pos, the point-of-sale client: it records
// deposit returns into the local event log and syncs them with the server.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/prudhvinik1/kaucjaflow/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Lang       string // "pl" | "en"
	Verbose    bool

	// Now and Location override the clock and display zone (for testing).
	Now      func() time.Time
	Location *time.Location
}

var (
	ValidFormats   = []string{"text", "json"}
	ValidLanguages = []string{"pl", "en"}
)

// NewRootCommand creates the root command of the POS client.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kf-pos",
		Short: "KaucjaFlow point-of-sale client",
		Long: `Record deposit returns on this device and keep them in sync with the
KaucjaFlow server. Events are written locally first and survive being offline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if !slices.Contains(ValidLanguages, opts.Lang) {
				return fmt.Errorf("invalid language %q: must be one of %v", opts.Lang, ValidLanguages)
			}
			if opts.ConfigPath == "" {
				opts.ConfigPath = config.DefaultPOSConfigPath()
			}

			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Lang, "lang", "pl", "language of text output (pl|en)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newRecordCommand(opts))
	cmd.AddCommand(newTodayCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newClearCommand(opts))
	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newVerifyCommand(opts))

	return cmd
}

func (o *RootOptions) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}
