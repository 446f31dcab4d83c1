package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dukerupert/campuscal/internal/calendar"
	"github.com/dukerupert/campuscal/internal/gateway"
	"github.com/dukerupert/campuscal/internal/render"
)

func newMonthCmd(a *app) *cobra.Command {
	var (
		eventType string
		watch     bool
		agenda    bool
		maxEvents int
		cellWidth int
	)

	cmd := &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Print a month grid with its events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := calendar.EventType(eventType)
			if filter != "" && !filter.Valid() {
				return fmt.Errorf("unknown event type %q (want one of %v)", eventType, calendar.EventTypes)
			}

			cal, gw, err := a.engine()
			if err != nil {
				return err
			}
			cal.Store().SetFilter(filter)
			if len(args) == 1 {
				m, err := calendar.ParseMonth(args[0])
				if err != nil {
					return err
				}
				cal.Navigator().GoTo(m)
			}

			rd := render.New(cmd.OutOrStdout(), render.Options{
				CellWidth: cellWidth,
				MaxEvents: maxEvents,
				Location:  a.loc,
			})
			show := func(out io.Writer) {
				fmt.Fprintln(out, rd.Month(cal.View()))
				if agenda {
					fmt.Fprintln(out)
					fmt.Fprintln(out, rd.Agenda(cal.Store().Events()))
				}
			}

			ctx := cmd.Context()
			if err := cal.Load(ctx); err != nil && !watch {
				show(cmd.OutOrStdout())
				return err
			}
			show(cmd.OutOrStdout())

			if !watch {
				return nil
			}
			return a.watchMonth(ctx, cal, gw, func() {
				fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")
				show(cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "", "only show events of this type")
	cmd.Flags().BoolVar(&watch, "watch", false, "redraw when events change on the server")
	cmd.Flags().BoolVar(&agenda, "agenda", false, "list the month's events with their ids below the grid")
	cmd.Flags().IntVar(&maxEvents, "max-events", 0, "event titles shown per day before \"+N more\"")
	cmd.Flags().IntVar(&cellWidth, "cell-width", 0, "width of each day cell")
	return cmd
}

// watchMonth reloads and redraws on every server notification until
// interrupted.
func (a *app) watchMonth(ctx context.Context, cal *calendar.Calendar, gw *gateway.Client, redraw func()) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := gw.Watch(ctx, func(n gateway.Notification) {
		a.logger.Debug("calendar changed", "action", n.Action, "id", n.ID)
		if err := cal.Load(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("reload after change", "error", err)
		}
		redraw()
	})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
