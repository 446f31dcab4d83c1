package calendar

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

var errBackend = errors.New("backend unavailable")

// fakeGateway is an in-memory backend. Failing a call is switched on per
// operation; block makes ListEvents wait until released or cancelled.
type fakeGateway struct {
	mu     sync.Mutex
	loc    *time.Location
	nextID int64
	events map[int64]Event

	failList   bool
	failCreate bool
	failUpdate bool
	failDelete bool

	listCalls []Range
	block     map[Month]chan struct{}
}

func newFakeGateway(loc *time.Location) *fakeGateway {
	return &fakeGateway{loc: loc, events: map[int64]Event{}, block: map[Month]chan struct{}{}}
}

func (g *fakeGateway) ListEvents(ctx context.Context, r Range, filter EventType) ([]Event, error) {
	g.mu.Lock()
	g.listCalls = append(g.listCalls, r)
	wait := g.block[MonthOf(r.Start)]
	g.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failList {
		return nil, errBackend
	}
	var out []Event
	for _, e := range g.events {
		if filter != "" && e.Type != filter {
			continue
		}
		if r.Overlaps(e.Start, e.End) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *fakeGateway) fromDraft(id int64, d Draft) (Event, error) {
	start, err := time.ParseInLocation(DraftTimeLayout, d.From, g.loc)
	if err != nil {
		return Event{}, err
	}
	end, err := time.ParseInLocation(DraftTimeLayout, d.To, g.loc)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID: id, Title: d.Title, Description: d.Description, Type: d.Type,
		Color: d.Color, Location: d.Location, Start: start, End: end, AllDay: d.AllDay,
	}, nil
}

func (g *fakeGateway) CreateEvent(ctx context.Context, d Draft) (Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate {
		return Event{}, errBackend
	}
	g.nextID++
	e, err := g.fromDraft(g.nextID, d)
	if err != nil {
		return Event{}, err
	}
	g.events[e.ID] = e
	return e, nil
}

func (g *fakeGateway) UpdateEvent(ctx context.Context, id int64, d Draft) (Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failUpdate {
		return Event{}, errBackend
	}
	if _, ok := g.events[id]; !ok {
		return Event{}, errors.New("not found")
	}
	e, err := g.fromDraft(id, d)
	if err != nil {
		return Event{}, err
	}
	g.events[id] = e
	return e, nil
}

func (g *fakeGateway) DeleteEvent(ctx context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failDelete {
		return errBackend
	}
	delete(g.events, id)
	return nil
}

func (g *fakeGateway) seed(e Event) Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	e.ID = g.nextID
	g.events[e.ID] = e
	return e
}

func (g *fakeGateway) hold(m Month) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.block[m] = ch
	return ch
}

// waitForCalls blocks until ListEvents has been entered n times.
func (g *fakeGateway) waitForCalls(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		g.mu.Lock()
		got := len(g.listCalls)
		g.mu.Unlock()
		if got >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("ListEvents entered %d times, want %d", got, n)
		}
		time.Sleep(time.Millisecond)
	}
}

func orientationDraft() Draft {
	d := NewDraft()
	d.Title = "Orientation"
	d.Location = "Main Campus"
	d.Type = TypeMeeting
	d.From = "2024-02-10T09:00"
	d.To = "2024-02-10T11:00"
	return d
}
