package calendar

import (
	"context"
	"testing"
	"time"
)

func TestNavigationReloads(t *testing.T) {
	c, gw := newTestCalendar(t)
	ctx := context.Background()
	gw.seed(Event{Title: "March", Start: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)})

	if got := c.Navigator().Focal(); got != feb2024 {
		t.Fatalf("initial focal = %s, want %s", got, feb2024)
	}

	if err := c.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if got := c.Navigator().Focal(); got != (Month{Year: 2024, Month: time.March}) {
		t.Errorf("focal after next = %s", got)
	}
	if n := len(c.Store().Events()); n != 1 {
		t.Errorf("march events = %d, want 1", n)
	}

	for i := 0; i < 2; i++ {
		if err := c.Prev(ctx); err != nil {
			t.Fatalf("prev: %v", err)
		}
	}
	if got := c.Navigator().Focal(); got != jan2024 {
		t.Errorf("focal after prev x2 = %s", got)
	}
	if n := len(c.Store().Events()); n != 0 {
		t.Errorf("january events = %d, want 0", n)
	}

	if err := c.Today(ctx); err != nil {
		t.Fatalf("today: %v", err)
	}
	if got := c.Navigator().Focal(); got != feb2024 {
		t.Errorf("focal after today = %s", got)
	}

	if n := len(gw.listCalls); n != 5 {
		t.Errorf("list calls = %d, want 5", n)
	}
}

func TestNavigatorAcrossYears(t *testing.T) {
	n := NewNavigator(func() time.Time { return time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC) })
	if got := n.GoToMonth(1); got != (Month{Year: 2025, Month: time.January}) {
		t.Errorf("+1 = %s", got)
	}
	if got := n.GoToMonth(-2); got != (Month{Year: 2024, Month: time.November}) {
		t.Errorf("-2 = %s", got)
	}
	if got := n.GoToToday(); got != (Month{Year: 2024, Month: time.December}) {
		t.Errorf("today = %s", got)
	}

	if n.View() != ViewMonth {
		t.Errorf("default view = %v", n.View())
	}
	n.SetView(ViewWeek)
	if n.View() != ViewWeek {
		t.Errorf("view = %v, want week", n.View())
	}
	if got := n.Focal(); got != (Month{Year: 2024, Month: time.December}) {
		t.Errorf("view mode moved the month to %s", got)
	}
}

func TestViewBucketsOntoGrid(t *testing.T) {
	c, gw := newTestCalendar(t)
	gw.seed(Event{Title: "Orientation", Start: at(10, 9)})
	gw.seed(Event{Title: "Leap day", Start: at(29, 9)})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	v := c.View()
	if v.Month != feb2024 || v.Mode != ViewMonth || v.Error != "" {
		t.Errorf("view = %s %v %q", v.Month, v.Mode, v.Error)
	}

	// Feb 1 2024 is the fifth cell.
	if b := v.Buckets[4+9]; len(b) != 1 || b[0].Title != "Orientation" {
		t.Errorf("Feb 10 bucket = %v", titles(b))
	}
	if b := v.Buckets[4+28]; len(b) != 1 {
		t.Errorf("Feb 29 bucket = %v", titles(b))
	}
	if !v.Grid[4+19].IsToday {
		t.Error("Feb 20 should be today")
	}
}

func TestViewShowsLoadError(t *testing.T) {
	c, gw := newTestCalendar(t)
	gw.failList = true
	if err := c.Next(context.Background()); err == nil {
		t.Fatal("expected a load error")
	}
	if got := c.View().Error; got != MsgLoadFailed {
		t.Errorf("view error = %q, want %q", got, MsgLoadFailed)
	}
}

func TestLoadIgnoresMonthLeftBehind(t *testing.T) {
	c, gw := newTestCalendar(t)
	gw.seed(Event{Title: "Jan", Start: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)})
	release := gw.hold(jan2024)

	c.Navigator().GoTo(jan2024)
	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()

	gw.waitForCalls(t, 2)

	// Navigation moves on without issuing a load of its own.
	c.Navigator().GoTo(feb2024)
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("load: %v", err)
	}
	if m, _ := c.Store().Month(); m != feb2024 {
		t.Errorf("store month = %s, january was committed after navigating away", m)
	}
	for _, e := range c.Store().Events() {
		if e.Title == "Jan" {
			t.Error("january event leaked into the store")
		}
	}
}
