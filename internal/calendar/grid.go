package calendar

import (
	"fmt"
	"time"
)

// GridSize is the number of cells in a month grid: six weeks of seven days.
const GridSize = 42

// DayCell is one slot of the month grid.
type DayCell struct {
	DayNumber    int
	FullDate     time.Time
	IsOtherMonth bool
	IsToday      bool
}

// Grid is a month laid out as six Sunday-first weeks.
type Grid [GridSize]DayCell

// Week returns the seven cells of week i (0-5).
func (g *Grid) Week(i int) []DayCell {
	return g[i*7 : i*7+7]
}

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// Add shifts the month by delta months, carrying into the year.
func (m Month) Add(delta int) Month {
	return MonthOf(time.Date(m.Year, m.Month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC))
}

// First returns midnight of the 1st of the month in loc.
func (m Month) First(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// DaysIn returns the number of days in the month.
func (m Month) DaysIn() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Range is the window of time covered by a month: from the first second
// of its first day to the last second of its last day.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Overlaps reports whether something running from start to end touches
// the range. An end before start is treated as a point at start.
func (r Range) Overlaps(start, end time.Time) bool {
	if end.Before(start) {
		end = start
	}
	return !start.After(r.End) && !end.Before(r.Start)
}

// MonthRange returns [first 00:00:00, last 23:59:59] for m in loc.
func MonthRange(m Month, loc *time.Location) Range {
	return Range{
		Start: time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc),
		End:   time.Date(m.Year, m.Month, m.DaysIn(), 23, 59, 59, 0, loc),
	}
}

// DateOf truncates t to midnight of its calendar day in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, mo, d := t.In(loc).Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar date, ignoring
// the time of day. Both are compared in a's location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// BuildMonthGrid lays out m as 42 cells: the tail of the previous month up
// to the first Sunday, every day of m, then the head of the next month.
// Cells are dated in today's location and the one matching today's date is
// flagged.
func BuildMonthGrid(m Month, today time.Time) Grid {
	loc := today.Location()
	first := m.First(loc)
	daysInMonth := m.DaysIn()
	leading := int(first.Weekday())

	var g Grid
	i := 0
	for d := leading; d > 0; d-- {
		g[i] = newCell(first.AddDate(0, 0, -d), true, today)
		i++
	}
	for d := 0; d < daysInMonth; d++ {
		g[i] = newCell(first.AddDate(0, 0, d), false, today)
		i++
	}
	next := m.Add(1).First(loc)
	for d := 0; i < GridSize; d++ {
		g[i] = newCell(next.AddDate(0, 0, d), true, today)
		i++
	}
	return g
}

func newCell(date time.Time, other bool, today time.Time) DayCell {
	return DayCell{
		DayNumber:    date.Day(),
		FullDate:     date,
		IsOtherMonth: other,
		IsToday:      SameDay(date, today),
	}
}
