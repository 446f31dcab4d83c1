package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dukerupert/campuscal/internal/calendar"
	"github.com/dukerupert/campuscal/internal/render"
)

// draftFlags are the form fields settable from the command line.
type draftFlags struct {
	title       string
	description string
	location    string
	eventType   string
	from        string
	to          string
	color       string
	allDay      bool
}

func (f *draftFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.title, "title", "", "event title")
	fs.StringVar(&f.description, "description", "", "event description")
	fs.StringVar(&f.location, "location", "", fmt.Sprintf("one of %q", calendar.Locations))
	fs.StringVar(&f.eventType, "type", "", fmt.Sprintf("one of %v", calendar.EventTypes))
	fs.StringVar(&f.from, "from", "", "start, "+calendar.DraftTimeLayout)
	fs.StringVar(&f.to, "to", "", "end, "+calendar.DraftTimeLayout)
	fs.StringVar(&f.color, "color", "", "display color, e.g. #3788d8")
	fs.BoolVar(&f.allDay, "all-day", false, "all-day event")
}

// apply copies the flags the user set onto d.
func (f *draftFlags) apply(fs *pflag.FlagSet, d *calendar.Draft) {
	if fs.Changed("title") {
		d.Title = f.title
	}
	if fs.Changed("description") {
		d.Description = f.description
	}
	if fs.Changed("location") {
		d.Location = f.location
	}
	if fs.Changed("type") {
		d.Type = calendar.EventType(f.eventType)
	}
	if fs.Changed("from") {
		d.From = f.from
	}
	if fs.Changed("to") {
		d.To = f.to
	}
	if fs.Changed("color") {
		d.Color = f.color
	}
	if fs.Changed("all-day") {
		d.AllDay = f.allDay
	}
}

func newEventCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Create, edit and delete calendar events",
	}
	cmd.AddCommand(newEventAddCmd(a), newEventEditCmd(a), newEventDeleteCmd(a))
	return cmd
}

func newEventAddCmd(a *app) *cobra.Command {
	var df draftFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			cal, _, err := a.engine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			// Load the event's month so the result can be listed.
			if t, err := time.ParseInLocation(calendar.DraftTimeLayout, df.from, a.loc); err == nil {
				cal.Navigator().GoTo(calendar.MonthOf(t))
			}
			if err := cal.Load(ctx); err != nil {
				return err
			}

			form := cal.Form()
			if err := form.OpenCreate(); err != nil {
				return err
			}
			form.Edit(func(d *calendar.Draft) { df.apply(cmd.Flags(), d) })
			if err := submit(form.Submit(ctx)); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Event created.")
			return printAgenda(cmd, a, cal)
		},
	}
	df.register(cmd.Flags())
	return cmd
}

func newEventEditCmd(a *app) *cobra.Command {
	var (
		df    draftFlags
		month string
	)

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of an existing event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cal, ev, err := a.findEvent(cmd, args[0], month)
			if err != nil {
				return err
			}

			form := cal.Form()
			if err := form.OpenEdit(ev); err != nil {
				return err
			}
			form.Edit(func(d *calendar.Draft) { df.apply(cmd.Flags(), d) })
			if err := submit(form.Submit(cmd.Context())); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Event #%d updated.\n", ev.ID)
			return printAgenda(cmd, a, cal)
		},
	}
	df.register(cmd.Flags())
	cmd.Flags().StringVar(&month, "month", "", "month holding the event, YYYY-MM (default current)")
	return cmd
}

func newEventDeleteCmd(a *app) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cal, ev, err := a.findEvent(cmd, args[0], month)
			if err != nil {
				return err
			}

			form := cal.Form()
			if err := form.OpenEdit(ev); err != nil {
				return err
			}
			if err := form.Delete(cmd.Context()); err != nil {
				return fmt.Errorf("%s: %w", calendar.MsgDeleteFailed, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Event #%d deleted.\n", ev.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month holding the event, YYYY-MM (default current)")
	return cmd
}

// findEvent loads month and looks up the event with the given id in it.
func (a *app) findEvent(cmd *cobra.Command, rawID, month string) (*calendar.Calendar, calendar.Event, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return nil, calendar.Event{}, fmt.Errorf("invalid event id %q", rawID)
	}

	cal, _, err := a.engine()
	if err != nil {
		return nil, calendar.Event{}, err
	}
	if month != "" {
		m, err := calendar.ParseMonth(month)
		if err != nil {
			return nil, calendar.Event{}, err
		}
		cal.Navigator().GoTo(m)
	}
	if err := cal.Load(cmd.Context()); err != nil {
		return nil, calendar.Event{}, err
	}

	ev, ok := cal.Store().Find(id)
	if !ok {
		m, _ := cal.Store().Month()
		return nil, calendar.Event{}, fmt.Errorf("event #%d not found in %s (use --month)", id, m)
	}
	return cal, ev, nil
}

// submit turns form errors into messages for the terminal.
func submit(err error) error {
	var mf *calendar.MissingFieldsError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &mf):
		return fmt.Errorf("missing required fields: %v", mf.Fields)
	default:
		return fmt.Errorf("%s: %w", calendar.MsgSaveFailed, err)
	}
}

func printAgenda(cmd *cobra.Command, a *app, cal *calendar.Calendar) error {
	rd := render.New(cmd.OutOrStdout(), render.Options{Location: a.loc})
	_, err := fmt.Fprintln(cmd.OutOrStdout(), rd.Agenda(cal.Store().Events()))
	return err
}
