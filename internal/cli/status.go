package cli

import (
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"
)

// StatusView describes the device, its backlog and server reachability.
type StatusView struct {
	ShopID    string `json:"shop_id"`
	DeviceID  string `json:"device_id"`
	Database  string `json:"database"`
	ServerURL string `json:"server_url"`
	Online    bool   `json:"online"`
	Total     int    `json:"total"`
	Unsynced  int    `json:"unsynced"`
}

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show device identity, pending events and connectivity",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			counts, err := a.store.Count(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to count events", err)
			}

			view := StatusView{
				ShopID:    a.store.ShopID(),
				DeviceID:  a.store.DeviceID(),
				Database:  a.store.Path(),
				ServerURL: a.cfg.ServerURL,
				Online:    a.remote.Ping(cmd.Context()),
				Total:     counts.Total,
				Unsynced:  counts.Unsynced,
			}

			return newFormatter(cmd, opts).Success(view, func(p *message.Printer, w io.Writer) {
				conn := p.Sprintf("offline")
				if view.Online {
					conn = p.Sprintf("online")
				}
				p.Fprintf(w, "Shop: %s\n", view.ShopID)
				p.Fprintf(w, "Device: %s\n", view.DeviceID)
				p.Fprintf(w, "Database: %s\n", view.Database)
				p.Fprintf(w, "Server: %s (%s)\n", view.ServerURL, conn)
				p.Fprintf(w, "Events: %d\n", view.Total)
				p.Fprintf(w, "Pending: %d\n", view.Unsynced)
			})
		},
	}
}
