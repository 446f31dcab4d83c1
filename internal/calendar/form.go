package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Messages shown inline in the event form.
const (
	MsgSaveFailed   = "Failed to save event"
	MsgDeleteFailed = "Failed to delete event"
)

// DraftTimeLayout is the precision of the form's date-time inputs.
const DraftTimeLayout = "2006-01-02T15:04"

var (
	// ErrInvalidTransition is returned when an action is not available in
	// the form's current phase.
	ErrInvalidTransition = errors.New("calendar: action not allowed in current form state")

	// ErrMissingRequired is wrapped by MissingFieldsError.
	ErrMissingRequired = errors.New("calendar: required field missing")
)

// MissingFieldsError lists the required inputs left empty on submit.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Unwrap() error { return ErrMissingRequired }

// Mutator persists drafts.
type Mutator interface {
	CreateEvent(ctx context.Context, d Draft) (Event, error)
	UpdateEvent(ctx context.Context, id int64, d Draft) (Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// Draft is the unsaved content of the event form. From and To use
// DraftTimeLayout.
type Draft struct {
	Title       string
	Description string
	Type        EventType
	Color       string
	Location    string
	From        string
	To          string
	AllDay      bool
}

// NewDraft returns an empty draft with the default color.
func NewDraft() Draft {
	return Draft{Color: DefaultColor}
}

// DraftFromEvent fills a draft from e, truncating times to the minute in
// loc.
func DraftFromEvent(e Event, loc *time.Location) Draft {
	return Draft{
		Title:       e.Title,
		Description: e.Description,
		Type:        e.Type,
		Color:       e.DisplayColor(),
		Location:    e.Location,
		From:        e.Start.In(loc).Format(DraftTimeLayout),
		To:          e.End.In(loc).Format(DraftTimeLayout),
		AllDay:      e.AllDay,
	}
}

// Missing returns the names of the required inputs that are empty.
func (d Draft) Missing() []string {
	var missing []string
	if strings.TrimSpace(d.Location) == "" {
		missing = append(missing, "location")
	}
	if strings.TrimSpace(d.Title) == "" {
		missing = append(missing, "title")
	}
	if d.Type == "" {
		missing = append(missing, "type")
	}
	if d.From == "" {
		missing = append(missing, "from")
	}
	if d.To == "" {
		missing = append(missing, "to")
	}
	return missing
}

// Phase is the state of the event form.
type Phase int

const (
	Closed Phase = iota
	Creating
	Editing
	Submitting
	Deleting
)

func (p Phase) String() string {
	switch p {
	case Closed:
		return "closed"
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Deleting:
		return "deleting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// FormState is a snapshot of the form. EventID is set while editing an
// existing event, including while its update or delete is in flight.
// Origin is the phase a pending request returns to on failure.
type FormState struct {
	Phase   Phase
	Draft   Draft
	EventID int64
	Origin  Phase
	Error   string
}

// Form drives the add/edit/delete modal. Successful mutations are merged
// into the store; failures keep the draft so the user can retry.
type Form struct {
	mu     sync.Mutex
	state  FormState
	seq    uint64
	cancel context.CancelFunc

	gw     Mutator
	store  *EventStore
	loc    *time.Location
	logger *slog.Logger
}

// NewForm returns a closed form.
func NewForm(gw Mutator, store *EventStore, loc *time.Location, logger *slog.Logger) *Form {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Form{
		state:  FormState{Phase: Closed, Draft: NewDraft()},
		gw:     gw,
		store:  store,
		loc:    loc,
		logger: logger,
	}
}

// State returns a snapshot of the form.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// OpenCreate opens an empty form for a new event.
func (f *Form) OpenCreate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Phase != Closed {
		return ErrInvalidTransition
	}
	f.state = FormState{Phase: Creating, Draft: NewDraft()}
	return nil
}

// OpenCreateOn opens a new-event form pre-filled with 09:00-10:00 of day.
func (f *Form) OpenCreateOn(day time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Phase != Closed {
		return ErrInvalidTransition
	}
	start := DateOf(day, f.loc).Add(9 * time.Hour)
	d := NewDraft()
	d.From = start.Format(DraftTimeLayout)
	d.To = start.Add(time.Hour).Format(DraftTimeLayout)
	f.state = FormState{Phase: Creating, Draft: d}
	return nil
}

// OpenEdit opens the form on an existing event.
func (f *Form) OpenEdit(e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Phase != Closed {
		return ErrInvalidTransition
	}
	if e.ID == 0 {
		return fmt.Errorf("open edit: event has no id: %w", ErrInvalidTransition)
	}
	f.state = FormState{Phase: Editing, Draft: DraftFromEvent(e, f.loc), EventID: e.ID}
	return nil
}

// Edit applies fn to the draft. Only allowed while creating or editing.
func (f *Form) Edit(fn func(d *Draft)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Phase != Creating && f.state.Phase != Editing {
		return ErrInvalidTransition
	}
	fn(&f.state.Draft)
	return nil
}

// Submit creates or updates the event described by the draft. It blocks
// until the gateway answers or ctx ends.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	origin := f.state.Phase
	if origin != Creating && origin != Editing {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	if missing := f.state.Draft.Missing(); len(missing) > 0 {
		f.mu.Unlock()
		return &MissingFieldsError{Fields: missing}
	}
	draft, id := f.state.Draft, f.state.EventID
	ctx, seq := f.startLocked(ctx, Submitting)
	f.mu.Unlock()

	var (
		saved Event
		err   error
	)
	if origin == Creating {
		saved, err = f.gw.CreateEvent(ctx, draft)
	} else {
		saved, err = f.gw.UpdateEvent(ctx, id, draft)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err == nil {
		if origin == Creating {
			f.store.Append(saved)
		} else {
			f.store.Replace(saved)
		}
	}
	if !f.finishLocked(seq) {
		return context.Canceled
	}
	if err != nil {
		f.logger.Warn("save event failed", "phase", origin.String(), "event_id", id, "error", err)
		f.state.Phase = origin
		f.state.Origin = Closed
		f.state.Error = MsgSaveFailed
		return fmt.Errorf("save event: %w", err)
	}
	f.logger.Info("event saved", "event_id", saved.ID, "created", origin == Creating)
	f.resetLocked()
	return nil
}

// Delete removes the event being edited.
func (f *Form) Delete(ctx context.Context) error {
	f.mu.Lock()
	if f.state.Phase != Editing {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	id := f.state.EventID
	ctx, seq := f.startLocked(ctx, Deleting)
	f.mu.Unlock()

	err := f.gw.DeleteEvent(ctx, id)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err == nil {
		f.store.Remove(id)
	}
	if !f.finishLocked(seq) {
		return context.Canceled
	}
	if err != nil {
		f.logger.Warn("delete event failed", "event_id", id, "error", err)
		f.state.Phase = Editing
		f.state.Origin = Closed
		f.state.Error = MsgDeleteFailed
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	f.logger.Info("event deleted", "event_id", id)
	f.resetLocked()
	return nil
}

// Cancel closes the form from any phase, discarding the draft and error.
// A request still in flight is cancelled and its outcome no longer
// affects the form.
func (f *Form) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.seq++
	f.resetLocked()
}

func (f *Form) startLocked(ctx context.Context, p Phase) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)
	f.seq++
	f.cancel = cancel
	f.state.Origin = f.state.Phase
	f.state.Phase = p
	f.state.Error = ""
	return ctx, f.seq
}

// finishLocked releases the request context and reports whether the
// request is still the one the form is waiting on.
func (f *Form) finishLocked(seq uint64) bool {
	if seq != f.seq {
		return false
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	return true
}

func (f *Form) resetLocked() {
	f.state = FormState{Phase: Closed, Draft: NewDraft()}
}
