package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/campuscal/internal/calendar"
)

// QueryTimeLayout formats the start and end query parameters of a list
// request.
const QueryTimeLayout = "2006-01-02 15:04:05"

// Payload is the request body of create and update calls. Field names
// follow the API, not the form.
type Payload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	AllDay      bool   `json:"all_day"`
	EventType   string `json:"event_type"`
	Color       string `json:"color"`
	Location    string `json:"location"`
}

// NewPayload maps a form draft onto the wire body.
func NewPayload(d calendar.Draft) Payload {
	return Payload{
		Title:       d.Title,
		Description: d.Description,
		StartDate:   d.From,
		EndDate:     d.To,
		AllDay:      d.AllDay,
		EventType:   string(d.Type),
		Color:       d.Color,
		Location:    d.Location,
	}
}

// wireEvent is an event as the API returns it.
type wireEvent struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	EventType   string `json:"event_type"`
	Color       string `json:"color"`
	Location    string `json:"location"`
	Start       string `json:"start"`
	End         string `json:"end"`
	AllDay      bool   `json:"all_day"`
}

type listResponse struct {
	Events []wireEvent `json:"events"`
}

type eventResponse struct {
	Event *wireEvent `json:"event"`
}

var wireTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	QueryTimeLayout,
	"2006-01-02T15:04",
}

func parseWireTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range wireTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func (w wireEvent) toEvent(loc *time.Location) (calendar.Event, error) {
	if w.ID == 0 {
		return calendar.Event{}, errors.New("event without id")
	}
	start, err := parseWireTime(w.Start, loc)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("event %d start: %w", w.ID, err)
	}
	end, err := parseWireTime(w.End, loc)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("event %d end: %w", w.ID, err)
	}
	return calendar.Event{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Type:        calendar.EventType(w.EventType),
		Color:       w.Color,
		Location:    w.Location,
		Start:       start,
		End:         end,
		AllDay:      w.AllDay,
	}, nil
}
