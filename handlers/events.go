package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/racereg/models"
)

type createEventRequest struct {
	Name        string   `json:"name"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Distances   []string `json:"distances"`
}

type addCategoryRequest struct {
	CategoryID int64 `json:"categoryID"`
}

type setStateRequest struct {
	State string `json:"state"`
}

type eventData struct {
	*models.Event
	Counts models.RegistrationCounts `json:"counts"`
}

func newEventData(ev *models.Event) eventData {
	return eventData{Event: ev, Counts: ev.Counts()}
}

// parseDate accepts a plain YYYY-MM-DD date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &models.ValidationError{Field: "date", Msg: "expected YYYY-MM-DD or RFC 3339"}
	}
	return t, nil
}

// Events returns every event with its registration counts.
func (h *Handler) Events(c echo.Context) error {
	events := h.store.Events()
	out := make([]eventData, len(events))
	for i, ev := range events {
		out[i] = newEventData(ev)
	}
	return c.JSON(http.StatusOK, out)
}

// Event returns one event.
func (h *Handler) Event(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ev, err := h.store.Event(id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newEventData(ev))
}

// CreateEvent adds a PLANNED event.
func (h *Handler) CreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return fail(err)
	}
	distances := make([]models.Distance, 0, len(req.Distances))
	for _, raw := range req.Distances {
		d, err := models.ParseDistance(raw)
		if err != nil {
			return fail(err)
		}
		distances = append(distances, d)
	}

	ev, err := h.store.CreateEvent(req.Name, date, req.Description, distances)
	if err != nil {
		return fail(err)
	}
	if err := h.persistEvent(c, ev.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newEventData(ev))
}

// AddEventCategory attaches a category to an event.
func (h *Handler) AddEventCategory(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req addCategoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	added, err := h.store.AddCategory(id, req.CategoryID)
	if err != nil {
		return fail(err)
	}
	if added {
		if err := h.persistEvent(c, id); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, map[string]bool{"added": added})
}

// SetEventState advances an event one lifecycle step.
func (h *Handler) SetEventState(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req setStateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	next, err := models.ParseEventState(req.State)
	if err != nil {
		return fail(err)
	}

	ev, err := h.store.SetEventState(id, next)
	if err != nil {
		return fail(err)
	}
	if err := h.persistEvent(c, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newEventData(ev))
}

// EventRegistrations lists an event's registrations, optionally filtered by ?state=.
func (h *Handler) EventRegistrations(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	state, filtered, err := stateFilter(c)
	if err != nil {
		return err
	}

	var regs []models.Registration
	if filtered {
		regs, err = h.store.RegistrationsByState(id, state)
	} else {
		regs, err = h.store.Registrations(id)
	}
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, regs)
}

// HasBib reports whether a bib number is already taken in an event.
func (h *Handler) HasBib(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	bib, err := strconv.Atoi(c.Param("bib"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid bib")
	}
	taken, err := h.store.HasBibNumber(id, bib)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"bib": bib, "taken": taken})
}
