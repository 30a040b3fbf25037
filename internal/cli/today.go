package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

// TodayView is the daily summary printed by `today`.
type TodayView struct {
	Day      string         `json:"day"`
	Summary  models.Summary `json:"summary"`
	Unsynced int            `json:"unsynced"`
	Events   []models.Event `json:"events,omitempty"`
}

func newTodayCommand(opts *RootOptions) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:           "today",
		Short:         "Show today's counts from the local log",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.store.ListToday(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read today's events", err)
			}

			view := TodayView{Day: a.store.Now().Format("2006-01-02")}
			for _, ev := range events {
				view.Summary.Add(ev.Type, 1)
				if !ev.Synced {
					view.Unsynced++
				}
			}
			if list {
				view.Events = events
			}

			return newFormatter(cmd, opts).Success(view, func(p *message.Printer, w io.Writer) {
				writeToday(p, w, view, opts.location())
			})
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "also list every event")
	return cmd
}

func writeToday(p *message.Printer, w io.Writer, view TodayView, loc *time.Location) {
	p.Fprintf(w, "Day: %s\n", view.Day)
	for _, t := range models.EventTypes {
		p.Fprintf(w, "%s: %d\n", typeLabel(p, t), view.Summary.Count(t))
	}
	p.Fprintf(w, "%s: %d\n", p.Sprintf("Total"), view.Summary.Total)
	p.Fprintf(w, "Pending: %d\n", view.Unsynced)

	for _, ev := range view.Events {
		state := p.Sprintf("pending")
		if ev.Synced {
			state = p.Sprintf("sent")
		}
		p.Fprintf(w, "%s  %s  %s  %s\n", ev.Time().In(loc).Format("15:04:05"), typeLabel(p, ev.Type), state, ev.ClientEventID)
	}
}
