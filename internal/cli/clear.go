package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"
)

func newClearCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every event from the local log",
		Long: `Delete every event from this device's local log, including events that
were never sent to the server. Asks for confirmation unless --yes is given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, opts)

			if !yes && !confirm(f.Printer, cmd.InOrStdin(), cmd.ErrOrStderr()) {
				return f.Success(map[string]bool{"cleared": false}, func(p *message.Printer, w io.Writer) {
					p.Fprintf(w, "Aborted.\n")
				})
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.ClearAll(cmd.Context()); err != nil {
				return WrapExitError(ExitCommandError, "failed to clear local events", err)
			}

			return f.Success(map[string]bool{"cleared": true}, func(p *message.Printer, w io.Writer) {
				p.Fprintf(w, "Cleared local events.\n")
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks on prompt and accepts YES or its Polish equivalent.
func confirm(p *message.Printer, in io.Reader, prompt io.Writer) bool {
	p.Fprintf(prompt, "Type YES to delete all local events, including unsent ones: ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "yes", "tak":
		return true
	}
	return false
}
