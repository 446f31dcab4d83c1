package calendar

import (
	"sync"
	"time"
)

// ViewMode is the selected calendar view. Only the month view lays out
// differently; the others are kept for display.
type ViewMode string

const (
	ViewMonth ViewMode = "month"
	ViewWeek  ViewMode = "week"
	ViewDay   ViewMode = "day"
)

// Navigator tracks the focal month.
type Navigator struct {
	mu    sync.RWMutex
	focal Month
	view  ViewMode
	now   func() time.Time
}

// NewNavigator starts on the current month in month view.
func NewNavigator(now func() time.Time) *Navigator {
	if now == nil {
		now = time.Now
	}
	return &Navigator{focal: MonthOf(now()), view: ViewMonth, now: now}
}

// Focal returns the displayed month.
func (n *Navigator) Focal() Month {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.focal
}

// View returns the selected view mode.
func (n *Navigator) View() ViewMode {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.view
}

// SetView changes the view mode.
func (n *Navigator) SetView(v ViewMode) {
	n.mu.Lock()
	n.view = v
	n.mu.Unlock()
}

// GoToMonth shifts the focal month by delta months and returns it.
func (n *Navigator) GoToMonth(delta int) Month {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.focal = n.focal.Add(delta)
	return n.focal
}

// GoToToday moves back to the current month.
func (n *Navigator) GoToToday() Month {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.focal = MonthOf(n.now())
	return n.focal
}

// GoTo jumps to m.
func (n *Navigator) GoTo(m Month) Month {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.focal = m
	return n.focal
}
