package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MsgLoadFailed is shown when a month cannot be fetched.
const MsgLoadFailed = "Failed to load events"

// ErrStaleLoad is returned by LoadMonth when a newer load was issued before
// this one completed. Its result has been discarded.
var ErrStaleLoad = errors.New("calendar: load superseded by a newer one")

// Lister fetches the events inside a time range. A non-empty filter limits
// the result to one event type.
type Lister interface {
	ListEvents(ctx context.Context, r Range, filter EventType) ([]Event, error)
}

// loadTicket identifies one issued load. Only the ticket matching the
// store's current generation may write to it.
type loadTicket struct {
	gen   uint64
	month Month
	rng   Range
}

// EventStore holds the events of the loaded month and buckets them by day.
// It is rebuilt from scratch by every successful load.
type EventStore struct {
	mu     sync.RWMutex
	loc    *time.Location
	filter EventType

	gen    uint64
	cancel context.CancelFunc
	focal  func() Month

	loaded bool
	month  Month
	rng    Range
	events []Event
	err    string
}

// NewEventStore returns an empty store that buckets days in loc.
func NewEventStore(loc *time.Location) *EventStore {
	if loc == nil {
		loc = time.Local
	}
	return &EventStore{loc: loc}
}

// SetFilter limits subsequent loads to one event type; empty clears it.
func (s *EventStore) SetFilter(t EventType) {
	s.mu.Lock()
	s.filter = t
	s.mu.Unlock()
}

// Follow ties the store to a navigator. Results for a month other than
// the one focal reports when they arrive are discarded as stale.
func (s *EventStore) Follow(focal func() Month) {
	s.mu.Lock()
	s.focal = focal
	s.mu.Unlock()
}

// LoadMonth fetches m through l and replaces the store contents with the
// result. On failure the previous events stay visible and Error reports
// MsgLoadFailed. Issuing a load cancels any load still in flight, and a
// response for a superseded load is dropped with ErrStaleLoad.
func (s *EventStore) LoadMonth(ctx context.Context, l Lister, m Month) error {
	t, ctx, cancel := s.begin(ctx, m)
	defer cancel()

	events, err := l.ListEvents(ctx, t.rng, s.filterFor())
	if err != nil {
		if !s.fail(t) {
			return ErrStaleLoad
		}
		return fmt.Errorf("load %s: %w", m, err)
	}
	if !s.commit(t, events) {
		return ErrStaleLoad
	}
	return nil
}

func (s *EventStore) filterFor() EventType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *EventStore) begin(ctx context.Context, m Month) (loadTicket, context.Context, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.gen++
	s.cancel = cancel
	return loadTicket{gen: s.gen, month: m, rng: MonthRange(m, s.loc)}, ctx, cancel
}

// currentLocked reports whether t is still the load the store waits for.
func (s *EventStore) currentLocked(t loadTicket) bool {
	if t.gen != s.gen {
		return false
	}
	return s.focal == nil || s.focal() == t.month
}

func (s *EventStore) commit(t loadTicket, events []Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(t) {
		return false
	}
	s.cancel = nil
	s.loaded = true
	s.month = t.month
	s.rng = t.rng
	s.err = ""
	s.events = make([]Event, 0, len(events))
	for _, e := range events {
		s.events = append(s.events, s.tag(e))
	}
	return true
}

func (s *EventStore) fail(t loadTicket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(t) {
		return false
	}
	s.cancel = nil
	s.err = MsgLoadFailed
	return true
}

func (s *EventStore) tag(e Event) Event {
	e.Date = DateOf(e.Start, s.loc)
	return e
}

// Month returns the month the current contents were loaded for.
func (s *EventStore) Month() (Month, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.month, s.loaded
}

// Error returns the last load error message, or "".
func (s *EventStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ClearError dismisses the load error indicator.
func (s *EventStore) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

// Events returns a copy of the stored events in fetch order.
func (s *EventStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}

// Find returns the stored event with the given id.
func (s *EventStore) Find(id int64) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}

// BucketByDay returns the events starting on the calendar day of date, in
// fetch order.
func (s *EventStore) BucketByDay(date time.Time) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := DateOf(date, s.loc)
	var out []Event
	for _, e := range s.events {
		if e.Date.Equal(day) {
			out = append(out, e)
		}
	}
	return out
}

// Buckets returns the events of every cell of g, indexed like g.
func (s *EventStore) Buckets(g *Grid) [GridSize][]Event {
	var out [GridSize][]Event
	for i, cell := range g {
		out[i] = s.BucketByDay(cell.FullDate)
	}
	return out
}

// Append adds a newly created event. An event that does not overlap the
// loaded month is not kept, matching what a reload would return.
func (s *EventStore) Append(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && !s.rng.Overlaps(e.Start, e.End) {
		return false
	}
	s.events = append(s.events, s.tag(e))
	return true
}

// Replace swaps the stored event sharing e's id for e, in place. An event
// not stored yet is added when it overlaps the loaded month.
func (s *EventStore) Replace(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == e.ID {
			s.events[i] = s.tag(e)
			return
		}
	}
	if !s.loaded || s.rng.Overlaps(e.Start, e.End) {
		s.events = append(s.events, s.tag(e))
	}
}

// Remove deletes the event with the given id.
func (s *EventStore) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return true
		}
	}
	return false
}
