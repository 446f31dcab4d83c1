package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/campuscal/internal/calendar"
	"github.com/dukerupert/campuscal/internal/model"
	"github.com/dukerupert/campuscal/internal/store"
	ws "github.com/dukerupert/campuscal/internal/websocket"
)

const entityCalendarEvent = "calendar_event"

// MutationRecorder counts successful event mutations by action.
type MutationRecorder interface {
	Mutation(action string)
}

type CalendarEventHandler struct {
	eventStore *store.EventStore
	hub        *ws.Hub
	recorder   MutationRecorder
	loc        *time.Location
	logger     *slog.Logger
}

// NewCalendarEventHandler builds the handler. hub and rec may be nil; loc
// reads zone-less times and defaults to time.Local.
func NewCalendarEventHandler(es *store.EventStore, hub *ws.Hub, rec MutationRecorder, loc *time.Location, logger *slog.Logger) *CalendarEventHandler {
	if loc == nil {
		loc = time.Local
	}
	return &CalendarEventHandler{eventStore: es, hub: hub, recorder: rec, loc: loc, logger: logger}
}

type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	AllDay      bool   `json:"all_day"`
	EventType   string `json:"event_type"`
	Color       string `json:"color"`
	Location    string `json:"location"`
}

type eventResponse struct {
	Event model.CalendarEvent `json:"event"`
}

type listResponse struct {
	Events []model.CalendarEvent `json:"events"`
}

func (h *CalendarEventHandler) parseAndValidate(r *http.Request, w http.ResponseWriter) (model.EventInput, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return model.EventInput{}, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return model.EventInput{}, false
	}
	if !calendar.EventType(req.EventType).Valid() {
		writeError(w, http.StatusBadRequest, "event_type is invalid")
		return model.EventInput{}, false
	}
	if !calendar.ValidLocation(req.Location) {
		writeError(w, http.StatusBadRequest, "location is invalid")
		return model.EventInput{}, false
	}

	start, err := parseFlexibleTime(req.StartDate, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date is not a valid date-time")
		return model.EventInput{}, false
	}
	end, err := parseFlexibleTime(req.EndDate, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date is not a valid date-time")
		return model.EventInput{}, false
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date must not be before start_date")
		return model.EventInput{}, false
	}

	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = calendar.DefaultColor
	}

	return model.EventInput{
		Title:       req.Title,
		Description: req.Description,
		EventType:   req.EventType,
		Color:       color,
		Location:    req.Location,
		Start:       start,
		End:         end,
		AllDay:      req.AllDay,
	}, true
}

// localize presents stored UTC times in the server's zone.
func (h *CalendarEventHandler) localize(e model.CalendarEvent) model.CalendarEvent {
	e.Start = e.Start.In(h.loc)
	e.End = e.End.In(h.loc)
	return e
}

// changed announces a successful mutation.
func (h *CalendarEventHandler) changed(action string, id int64) {
	h.logger.Info("calendar event "+action, "id", id)
	if h.recorder != nil {
		h.recorder.Mutation(action)
	}
	if h.hub != nil {
		h.hub.Broadcast(ws.NewMessage(entityCalendarEvent, action, id, nil))
	}
}

// parseRange reads the start, end and event_type query parameters shared by
// List and Export.
func (h *CalendarEventHandler) parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, string, bool) {
	q := r.URL.Query()
	startStr, endStr := q.Get("start"), q.Get("end")
	if startStr == "" || endStr == "" {
		writeError(w, http.StatusBadRequest, "start and end query parameters are required")
		return time.Time{}, time.Time{}, "", false
	}

	start, err := parseFlexibleTime(startStr, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start is not a valid date-time")
		return time.Time{}, time.Time{}, "", false
	}
	end, err := parseFlexibleTime(endStr, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end is not a valid date-time")
		return time.Time{}, time.Time{}, "", false
	}

	eventType := q.Get("event_type")
	if eventType != "" && !calendar.EventType(eventType).Valid() {
		writeError(w, http.StatusBadRequest, "event_type is invalid")
		return time.Time{}, time.Time{}, "", false
	}
	return start, end, eventType, true
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}

	event, err := h.eventStore.Create(in)
	if err != nil {
		h.logger.Error("create calendar event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	h.changed("created", event.ID)
	writeJSON(w, http.StatusCreated, eventResponse{Event: h.localize(*event)})
}

func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	start, end, eventType, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	events, err := h.eventStore.ListByDateRange(start, end, eventType)
	if err != nil {
		h.logger.Error("list calendar events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	resp := listResponse{Events: make([]model.CalendarEvent, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, h.localize(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	event, err := h.eventStore.GetByID(id)
	if err != nil {
		h.logger.Error("get calendar event", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{Event: h.localize(*event)})
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	in, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}

	event, err := h.eventStore.Update(id, in)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		h.logger.Error("update calendar event", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}

	h.changed("updated", id)
	writeJSON(w, http.StatusOK, eventResponse{Event: h.localize(*event)})
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err = h.eventStore.Delete(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		h.logger.Error("delete calendar event", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	h.changed("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
