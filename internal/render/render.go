// Package render draws calendar views for a terminal.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dukerupert/campuscal/internal/calendar"
)

const (
	defaultCellWidth = 14
	defaultMaxEvents = 3
)

var weekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var (
	primary = lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#60a5fa"}
	muted   = lipgloss.AdaptiveColor{Light: "#9ca3af", Dark: "#6b7280"}
	danger  = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"}
)

// Options tunes the month grid.
type Options struct {
	CellWidth int
	// MaxEvents is the number of titles shown per cell before "+N more".
	MaxEvents int
	Location  *time.Location
}

// Renderer styles output for one terminal.
type Renderer struct {
	r    *lipgloss.Renderer
	opts Options
}

// New returns a Renderer whose color support matches out.
func New(out io.Writer, opts Options) *Renderer {
	if opts.CellWidth < 6 {
		opts.CellWidth = defaultCellWidth
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = defaultMaxEvents
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Renderer{r: lipgloss.NewRenderer(out), opts: opts}
}

// Month draws the 6x7 grid of v with each cell's events.
func (rd *Renderer) Month(v calendar.View) string {
	w := rd.opts.CellWidth
	gridWidth := w * 7

	title := rd.r.NewStyle().Bold(true).Foreground(primary).Width(gridWidth).Align(lipgloss.Center).
		Render(fmt.Sprintf("%s %d", v.Month.Month, v.Month.Year))

	headStyle := rd.r.NewStyle().Bold(true).Width(w).Align(lipgloss.Center)
	heads := make([]string, 7)
	for i, d := range weekdays {
		heads[i] = headStyle.Render(d)
	}

	rows := []string{title, lipgloss.JoinHorizontal(lipgloss.Top, heads...)}
	if v.Error != "" {
		rows = append(rows, rd.r.NewStyle().Foreground(danger).Render("! "+v.Error))
	}
	for week := 0; week < calendar.GridSize/7; week++ {
		cells := make([]string, 7)
		for dow := 0; dow < 7; dow++ {
			i := week*7 + dow
			cells[dow] = rd.cell(v.Grid[i], v.Buckets[i])
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (rd *Renderer) cell(day calendar.DayCell, events []calendar.Event) string {
	w := rd.opts.CellWidth
	numStyle := rd.r.NewStyle()
	switch {
	case day.IsToday:
		numStyle = numStyle.Bold(true).Reverse(true)
	case day.IsOtherMonth:
		numStyle = numStyle.Foreground(muted)
	}

	lines := []string{numStyle.Render(fmt.Sprintf("%2d", day.DayNumber))}
	for i, e := range events {
		if i == rd.opts.MaxEvents {
			more := fmt.Sprintf("+%d more", len(events)-i)
			lines = append(lines, rd.r.NewStyle().Foreground(muted).Render(more))
			break
		}
		label := truncate(rd.eventLabel(e), w-1)
		lines = append(lines, rd.r.NewStyle().Foreground(lipgloss.Color(e.DisplayColor())).Render(label))
	}
	for len(lines) < rd.opts.MaxEvents+2 {
		lines = append(lines, "")
	}

	return rd.r.NewStyle().Width(w).PaddingRight(1).Render(strings.Join(lines, "\n"))
}

func (rd *Renderer) eventLabel(e calendar.Event) string {
	if e.AllDay {
		return e.Title
	}
	return e.Start.In(rd.opts.Location).Format("15:04") + " " + e.Title
}

// Agenda lists events chronologically with their ids.
func (rd *Renderer) Agenda(events []calendar.Event) string {
	if len(events) == 0 {
		return rd.r.NewStyle().Foreground(muted).Render("No events.")
	}
	sorted := make([]calendar.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	idStyle := rd.r.NewStyle().Foreground(muted).Width(6)
	var b strings.Builder
	for _, e := range sorted {
		when := "all day"
		if !e.AllDay {
			when = e.Start.In(rd.opts.Location).Format("15:04") + "-" + e.End.In(rd.opts.Location).Format("15:04")
		}
		line := fmt.Sprintf("%s  %-11s  %-8s  %s (%s)",
			e.Start.In(rd.opts.Location).Format("Mon Jan 02"), when, e.Type, e.Title, e.Location)
		b.WriteString(idStyle.Render(fmt.Sprintf("#%d", e.ID)))
		b.WriteString(rd.r.NewStyle().Foreground(lipgloss.Color(e.DisplayColor())).Render(line))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
