package cli

import (
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

func newRecordCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "record <plastic|aluminum|glass>",
		Short: "Record one deposit return",
		Long: `Append one event to the local log. The event is pushed on the next sync.

Legacy names PLASTIC, ALU and SZKLO are accepted.

Example:
  kf-pos record plastic`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := models.ParseEventType(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid event type", err)
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ev, err := a.store.Append(cmd.Context(), t)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to record event", err)
			}

			return newFormatter(cmd, opts).Success(ev, func(p *message.Printer, w io.Writer) {
				p.Fprintf(w, "Recorded %s (#%d)\n", typeLabel(p, ev.Type), ev.LocalID)
			})
		},
	}
}
