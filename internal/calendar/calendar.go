// Package calendar implements the month calendar engine: grid layout,
// the per-month event store, month navigation, and the event form state
// machine. Persistence goes through a Gateway.
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Gateway is the backend the engine loads and persists events through.
type Gateway interface {
	Lister
	Mutator
}

// Options configure a Calendar. Zero values use the local zone, the wall
// clock, and the default logger.
type Options struct {
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// Calendar wires navigation, the event store, and the form together.
type Calendar struct {
	gw     Gateway
	nav    *Navigator
	store  *EventStore
	form   *Form
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// New returns a Calendar focused on the current month. Nothing is loaded
// until Load or a navigation call.
func New(gw Gateway, opts Options) *Calendar {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	loc := opts.Location
	now := func() time.Time { return opts.Now().In(loc) }
	nav := NewNavigator(now)
	store := NewEventStore(loc)
	store.Follow(nav.Focal)
	return &Calendar{
		gw:     gw,
		nav:    nav,
		store:  store,
		form:   NewForm(gw, store, loc, opts.Logger.With("component", "event_form")),
		loc:    loc,
		now:    now,
		logger: opts.Logger,
	}
}

func (c *Calendar) Navigator() *Navigator { return c.nav }
func (c *Calendar) Store() *EventStore    { return c.store }
func (c *Calendar) Form() *Form           { return c.form }

// Load fetches the focal month. A load overtaken by navigation is not an
// error.
func (c *Calendar) Load(ctx context.Context) error {
	m := c.nav.Focal()
	err := c.store.LoadMonth(ctx, c.gw, m)
	switch {
	case errors.Is(err, ErrStaleLoad):
		c.logger.Debug("discarded stale month load", "month", m.String())
		return nil
	case err != nil:
		c.logger.Warn("load month failed", "month", m.String(), "error", err)
		return err
	}
	c.logger.Debug("month loaded", "month", m.String(), "events", len(c.store.Events()))
	return nil
}

// Prev moves to the previous month and loads it.
func (c *Calendar) Prev(ctx context.Context) error {
	c.nav.GoToMonth(-1)
	return c.Load(ctx)
}

// Next moves to the next month and loads it.
func (c *Calendar) Next(ctx context.Context) error {
	c.nav.GoToMonth(1)
	return c.Load(ctx)
}

// Today moves to the current month and loads it.
func (c *Calendar) Today(ctx context.Context) error {
	c.nav.GoToToday()
	return c.Load(ctx)
}

// GoTo jumps to m and loads it.
func (c *Calendar) GoTo(ctx context.Context, m Month) error {
	c.nav.GoTo(m)
	return c.Load(ctx)
}

// View is a laid-out month ready for rendering.
type View struct {
	Month   Month
	Mode    ViewMode
	Grid    Grid
	Buckets [GridSize][]Event
	Error   string
}

// View lays out the focal month and buckets the stored events onto it.
func (c *Calendar) View() View {
	m := c.nav.Focal()
	g := BuildMonthGrid(m, c.now())
	return View{
		Month:   m,
		Mode:    c.nav.View(),
		Grid:    g,
		Buckets: c.store.Buckets(&g),
		Error:   c.store.Error(),
	}
}
