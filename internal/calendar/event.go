package calendar

import "time"

// DefaultColor is used when an event has no color of its own.
const DefaultColor = "#3788d8"

// EventType classifies an event for display.
type EventType string

const (
	TypeClass   EventType = "class"
	TypeMeeting EventType = "meeting"
	TypeExam    EventType = "exam"
	TypeHoliday EventType = "holiday"
	TypeOther   EventType = "other"
)

// EventTypes lists every accepted event type in display order.
var EventTypes = []EventType{TypeClass, TypeMeeting, TypeExam, TypeHoliday, TypeOther}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Locations are the campus identifiers an event can be held at.
var Locations = []string{
	"Main Campus",
	"North Campus",
	"South Campus",
	"Downtown Center",
	"Online",
}

// ValidLocation reports whether loc is a known campus identifier.
func ValidLocation(loc string) bool {
	for _, known := range Locations {
		if loc == known {
			return true
		}
	}
	return false
}

// Event is a persisted calendar event as held by the engine.
type Event struct {
	ID          int64
	Title       string
	Description string
	Type        EventType
	Color       string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool

	// Date is the local calendar day of Start, set when the event enters
	// the store. Buckets are keyed on it.
	Date time.Time
}

// DisplayColor returns the event color, falling back to DefaultColor.
func (e Event) DisplayColor() string {
	if e.Color == "" {
		return DefaultColor
	}
	return e.Color
}
