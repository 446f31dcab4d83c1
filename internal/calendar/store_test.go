package calendar

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	jan2024 = Month{Year: 2024, Month: time.January}
	feb2024 = Month{Year: 2024, Month: time.February}
)

func at(day, hour int) time.Time {
	return time.Date(2024, time.February, day, hour, 0, 0, 0, time.UTC)
}

func mustLoad(t *testing.T, s *EventStore, l Lister, m Month) {
	t.Helper()
	if err := s.LoadMonth(context.Background(), l, m); err != nil {
		t.Fatalf("load %s: %v", m, err)
	}
}

func titles(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

func TestLoadMonthReplacesContents(t *testing.T) {
	gw := newFakeGateway(time.UTC)
	gw.seed(Event{Title: "Jan", Start: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)})
	gw.seed(Event{Title: "Feb A", Start: at(10, 9)})
	gw.seed(Event{Title: "Feb B", Start: at(10, 14)})

	s := NewEventStore(time.UTC)
	mustLoad(t, s, gw, jan2024)
	if n := len(s.Events()); n != 1 {
		t.Fatalf("january events = %d, want 1", n)
	}

	mustLoad(t, s, gw, feb2024)
	events := s.Events()
	if len(events) != 2 {
		t.Fatalf("february events = %v, want 2", titles(events))
	}
	if events[0].Title != "Feb A" {
		t.Errorf("first = %q, want Feb A", events[0].Title)
	}

	m, ok := s.Month()
	if !ok || m != feb2024 {
		t.Errorf("Month() = %v, %v; want %v, true", m, ok, feb2024)
	}

	r := gw.listCalls[1]
	if want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC); !r.Start.Equal(want) {
		t.Errorf("range start = %v, want %v", r.Start, want)
	}
	if want := time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC); !r.End.Equal(want) {
		t.Errorf("range end = %v, want %v", r.End, want)
	}
}

func TestLoadMonthFailureKeepsPreviousEvents(t *testing.T) {
	gw := newFakeGateway(time.UTC)
	gw.seed(Event{Title: "Feb", Start: at(3, 9)})

	s := NewEventStore(time.UTC)
	mustLoad(t, s, gw, feb2024)

	gw.failList = true
	err := s.LoadMonth(context.Background(), gw, Month{Year: 2024, Month: time.March})
	if !errors.Is(err, errBackend) {
		t.Fatalf("err = %v, want %v", err, errBackend)
	}
	if s.Error() != MsgLoadFailed {
		t.Errorf("Error() = %q, want %q", s.Error(), MsgLoadFailed)
	}
	if n := len(s.Events()); n != 1 {
		t.Errorf("events after failure = %d, want the previous 1", n)
	}
	if m, _ := s.Month(); m != feb2024 {
		t.Errorf("Month() = %v, want %v", m, feb2024)
	}

	s.ClearError()
	if s.Error() != "" {
		t.Errorf("Error() after ClearError = %q", s.Error())
	}

	gw.failList = false
	mustLoad(t, s, gw, feb2024)
	if s.Error() != "" {
		t.Errorf("Error() after successful load = %q", s.Error())
	}
}

func TestLoadMonthDiscardsSupersededLoad(t *testing.T) {
	gw := newFakeGateway(time.UTC)
	gw.seed(Event{Title: "Jan", Start: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)})
	gw.seed(Event{Title: "Feb", Start: at(5, 9)})
	release := gw.hold(jan2024)

	s := NewEventStore(time.UTC)
	done := make(chan error, 1)
	go func() { done <- s.LoadMonth(context.Background(), gw, jan2024) }()

	gw.waitForCalls(t, 1)

	mustLoad(t, s, gw, feb2024)
	close(release)
	if err := <-done; !errors.Is(err, ErrStaleLoad) {
		t.Errorf("january load err = %v, want ErrStaleLoad", err)
	}

	if m, _ := s.Month(); m != feb2024 {
		t.Errorf("Month() = %v, want %v", m, feb2024)
	}
	events := s.Events()
	if len(events) != 1 || events[0].Title != "Feb" {
		t.Errorf("events = %v, want [Feb]", titles(events))
	}
	if s.Error() != "" {
		t.Errorf("Error() = %q, want empty", s.Error())
	}
}

// deafLister ignores cancellation and answers whenever it is told to.
type deafLister struct {
	answers map[Month]chan []Event
	started chan Month
}

func (d *deafLister) ListEvents(_ context.Context, r Range, _ EventType) ([]Event, error) {
	m := MonthOf(r.Start)
	d.started <- m
	return <-d.answers[m], nil
}

func TestLateResponseCannotOverwriteNewerMonth(t *testing.T) {
	l := &deafLister{
		answers: map[Month]chan []Event{jan2024: make(chan []Event), feb2024: make(chan []Event)},
		started: make(chan Month, 2),
	}
	s := NewEventStore(time.UTC)

	janDone := make(chan error, 1)
	go func() { janDone <- s.LoadMonth(context.Background(), l, jan2024) }()
	<-l.started

	febDone := make(chan error, 1)
	go func() { febDone <- s.LoadMonth(context.Background(), l, feb2024) }()
	<-l.started

	l.answers[feb2024] <- []Event{{ID: 2, Title: "Feb", Start: at(1, 9)}}
	if err := <-febDone; err != nil {
		t.Fatalf("february load: %v", err)
	}

	l.answers[jan2024] <- []Event{{ID: 1, Title: "Jan", Start: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)}}
	if err := <-janDone; !errors.Is(err, ErrStaleLoad) {
		t.Errorf("january load err = %v, want ErrStaleLoad", err)
	}

	events := s.Events()
	if len(events) != 1 || events[0].Title != "Feb" {
		t.Errorf("events = %v, want [Feb]", titles(events))
	}
}

func TestLoadForUnfocusedMonthIsStale(t *testing.T) {
	gw := newFakeGateway(time.UTC)
	gw.seed(Event{Title: "Jan", Start: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)})

	s := NewEventStore(time.UTC)
	s.Follow(func() Month { return feb2024 })

	if err := s.LoadMonth(context.Background(), gw, jan2024); !errors.Is(err, ErrStaleLoad) {
		t.Fatalf("err = %v, want ErrStaleLoad", err)
	}
	if _, ok := s.Month(); ok {
		t.Error("store should still be unloaded")
	}
	if n := len(s.Events()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}

	gw.failList = true
	if err := s.LoadMonth(context.Background(), gw, jan2024); !errors.Is(err, ErrStaleLoad) {
		t.Fatalf("failed load err = %v, want ErrStaleLoad", err)
	}
	if s.Error() != "" {
		t.Errorf("Error() = %q, a stale failure must not surface", s.Error())
	}
}

func TestBucketByDay(t *testing.T) {
	gw := newFakeGateway(time.UTC)
	gw.seed(Event{Title: "Late", Start: at(10, 18)})
	gw.seed(Event{Title: "Other day", Start: at(11, 9)})
	gw.seed(Event{Title: "Early", Start: at(10, 8)})

	s := NewEventStore(time.UTC)
	mustLoad(t, s, gw, feb2024)

	bucket := s.BucketByDay(at(10, 0))
	if len(bucket) != 2 {
		t.Fatalf("bucket = %v, want 2 events", titles(bucket))
	}
	if bucket[0].Title != "Late" || bucket[1].Title != "Early" {
		t.Errorf("bucket = %v, want fetch order [Late Early]", titles(bucket))
	}
	if !bucket[0].Date.Equal(at(10, 0)) {
		t.Errorf("Date = %v, want %v", bucket[0].Date, at(10, 0))
	}

	if n := len(s.BucketByDay(at(11, 23))); n != 1 {
		t.Errorf("11th bucket = %d, want 1", n)
	}
	if n := len(s.BucketByDay(at(12, 0))); n != 0 {
		t.Errorf("12th bucket = %d, want 0", n)
	}
}

func TestBucketByDayUsesLocalDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	s := NewEventStore(loc)
	l := listerFunc(func(context.Context, Range, EventType) ([]Event, error) {
		// 02:00 UTC on the 11th is still the evening of the 10th at UTC-5.
		return []Event{{ID: 1, Title: "Evening", Start: time.Date(2024, 2, 11, 2, 0, 0, 0, time.UTC)}}, nil
	})
	mustLoad(t, s, l, feb2024)

	if n := len(s.BucketByDay(time.Date(2024, 2, 10, 0, 0, 0, 0, loc))); n != 1 {
		t.Errorf("10th bucket = %d, want 1", n)
	}
	if n := len(s.BucketByDay(time.Date(2024, 2, 11, 0, 0, 0, 0, loc))); n != 0 {
		t.Errorf("11th bucket = %d, want 0", n)
	}
}

type listerFunc func(context.Context, Range, EventType) ([]Event, error)

func (f listerFunc) ListEvents(ctx context.Context, r Range, t EventType) ([]Event, error) {
	return f(ctx, r, t)
}

func TestLoadMonthPassesFilter(t *testing.T) {
	gw := newFakeGateway(time.UTC)
	gw.seed(Event{Title: "Exam", Type: TypeExam, Start: at(4, 9)})
	gw.seed(Event{Title: "Class", Type: TypeClass, Start: at(4, 10)})

	s := NewEventStore(time.UTC)
	s.SetFilter(TypeExam)
	mustLoad(t, s, gw, feb2024)
	events := s.Events()
	if len(events) != 1 || events[0].Title != "Exam" {
		t.Errorf("events = %v, want [Exam]", titles(events))
	}
}

func TestAppendReplaceRemove(t *testing.T) {
	gw := newFakeGateway(time.UTC)
	a := gw.seed(Event{Title: "A", Start: at(1, 9)})
	b := gw.seed(Event{Title: "B", Start: at(2, 9)})

	s := NewEventStore(time.UTC)
	mustLoad(t, s, gw, feb2024)

	if !s.Append(Event{ID: 10, Title: "C", Start: at(3, 9)}) {
		t.Error("append inside the month was refused")
	}
	if s.Append(Event{ID: 11, Title: "April", Start: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}) {
		t.Error("append outside the month was kept")
	}
	if n := len(s.Events()); n != 3 {
		t.Fatalf("events = %d, want 3", n)
	}

	a.Title = "A2"
	s.Replace(a)
	events := s.Events()
	if len(events) != 3 || events[0].Title != "A2" {
		t.Errorf("events = %v, want A2 replaced in place", titles(events))
	}

	b.Start = time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	s.Replace(b)
	if got, ok := s.Find(b.ID); !ok || !got.Start.Equal(b.Start) {
		t.Errorf("Find(%d) = %v, %v; want the replaced event", b.ID, got, ok)
	}

	s.Replace(Event{ID: 20, Title: "Unknown", Start: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)})
	if _, ok := s.Find(20); ok {
		t.Error("unstored event outside the month was added")
	}

	if !s.Remove(10) {
		t.Error("first remove reported nothing removed")
	}
	if s.Remove(10) {
		t.Error("second remove reported a removal")
	}
	if n := len(s.Events()); n != 2 {
		t.Errorf("events = %d, want 2", n)
	}
}

func TestCrossMonthEventSurvivesMutations(t *testing.T) {
	gw := newFakeGateway(time.UTC)
	retreat := gw.seed(Event{
		Title: "Retreat",
		Start: time.Date(2024, 1, 30, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 2, 17, 0, 0, 0, time.UTC),
	})

	s := NewEventStore(time.UTC)
	mustLoad(t, s, gw, feb2024)
	if n := len(s.Events()); n != 1 {
		t.Fatalf("events = %d, want the overlapping retreat", n)
	}
	if n := len(s.BucketByDay(time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC))); n != 1 {
		t.Errorf("Jan 30 bucket = %d, want 1", n)
	}

	retreat.Title = "Staff Retreat"
	s.Replace(retreat)
	if got, ok := s.Find(retreat.ID); !ok || got.Title != "Staff Retreat" {
		t.Errorf("Find = %v, %v; want the renamed retreat", got, ok)
	}

	kickoff := Event{
		ID:    50,
		Title: "Kickoff",
		Start: time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	if !s.Append(kickoff) {
		t.Error("append of an event overlapping the month was refused")
	}
	if n := len(s.Events()); n != 2 {
		t.Errorf("events = %d, want 2", n)
	}
}
