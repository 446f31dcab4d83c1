package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/campuscal/internal/model"
)

// ErrNotFound is returned by Update and Delete when no event has the id.
var ErrNotFound = errors.New("event not found")

const eventColumns = `id, uid, title, description, event_type, color, location, start_time, end_time, all_day, created_at, updated_at`

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.CalendarEvent, error) {
	var e model.CalendarEvent
	var allDayInt int
	err := row.Scan(&e.ID, &e.UID, &e.Title, &e.Description, &e.EventType, &e.Color, &e.Location,
		&e.Start, &e.End, &allDayInt, &e.CreatedAt, &e.UpdatedAt)
	e.AllDay = allDayInt != 0
	return e, err
}

func (s *EventStore) Create(in model.EventInput) (*model.CalendarEvent, error) {
	result, err := s.db.Exec(
		`INSERT INTO calendar_events (uid, title, description, event_type, color, location, start_time, end_time, all_day)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), in.Title, in.Description, in.EventType, in.Color, in.Location,
		in.Start.UTC(), in.End.UTC(), boolInt(in.AllDay),
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

// GetByID returns nil, nil when the event does not exist.
func (s *EventStore) GetByID(id int64) (*model.CalendarEvent, error) {
	e, err := scanEvent(s.db.QueryRow(`SELECT `+eventColumns+` FROM calendar_events WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}
	return &e, nil
}

// ListByDateRange returns events overlapping [start, end], optionally
// restricted to one event type.
func (s *EventStore) ListByDateRange(start, end time.Time, eventType string) ([]model.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events WHERE start_time <= ? AND end_time >= ?`
	args := []any{end.UTC(), start.UTC()}
	if eventType != "" {
		query += ` AND event_type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY all_day DESC, start_time ASC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(id int64, in model.EventInput) (*model.CalendarEvent, error) {
	result, err := s.db.Exec(
		`UPDATE calendar_events
		 SET title = ?, description = ?, event_type = ?, color = ?, location = ?, start_time = ?, end_time = ?, all_day = ?
		 WHERE id = ?`,
		in.Title, in.Description, in.EventType, in.Color, in.Location,
		in.Start.UTC(), in.End.UTC(), boolInt(in.AllDay), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return s.GetByID(id)
}

func (s *EventStore) Delete(id int64) error {
	result, err := s.db.Exec("DELETE FROM calendar_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
