package handler

import (
	"io"
	"net/http"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/dukerupert/campuscal/internal/model"
)

const productID = "-//campuscal//Training Center Calendar//EN"

// Export writes the events of the requested range as an iCalendar feed.
func (h *CalendarEventHandler) Export(w http.ResponseWriter, r *http.Request) {
	start, end, eventType, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	events, err := h.eventStore.ListByDateRange(start, end, eventType)
	if err != nil {
		h.logger.Error("export calendar events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export events")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="campuscal.ics"`)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, buildICS(events, h.loc).Serialize())
}

func buildICS(events []model.CalendarEvent, loc *time.Location) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range events {
		ve := cal.AddEvent(e.UID)
		ve.SetDtStampTime(e.UpdatedAt)
		ve.SetCreatedTime(e.CreatedAt)
		ve.SetModifiedAt(e.UpdatedAt)
		if e.AllDay {
			ve.SetAllDayStartAt(e.Start.In(loc))
			ve.SetAllDayEndAt(allDayEnd(e, loc))
		} else {
			ve.SetStartAt(e.Start)
			ve.SetEndAt(e.End)
		}
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		ve.SetLocation(e.Location)
		ve.SetProperty(ics.ComponentPropertyCategories, e.EventType)
		ve.SetProperty(ics.ComponentProperty("COLOR"), e.Color)
	}
	return cal
}

// allDayEnd returns the exclusive DTEND date of an all-day event. An end
// stored at midnight already marks the following day.
func allDayEnd(e model.CalendarEvent, loc *time.Location) time.Time {
	end := e.End.In(loc)
	y, m, d := end.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if end.Equal(midnight) && end.After(e.Start) {
		return midnight
	}
	return midnight.AddDate(0, 0, 1)
}
