package model

import "time"

type CalendarEvent struct {
	ID          int64     `json:"id"`
	UID         string    `json:"uid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventType   string    `json:"event_type"`
	Color       string    `json:"color"`
	Location    string    `json:"location"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventInput carries the writable fields of an event.
type EventInput struct {
	Title       string
	Description string
	EventType   string
	Color       string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
}
