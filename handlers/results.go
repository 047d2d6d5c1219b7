package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/racereg/ranking"
)

// Rank recomputes an event's leaderboards and stores the positions.
func (h *Handler) Rank(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	table, err := h.store.Rank(id)
	if err != nil {
		return fail(err)
	}
	if err := h.persistEvent(c, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, table)
}

// Results returns overall, per-category and per-distance leaderboards.
func (h *Handler) Results(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	table, err := h.store.Results(id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, table)
}

// Podium returns the top three for ?scope=overall|category:<id>|distance:<code>.
func (h *Handler) Podium(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	scope, err := ranking.ParseScope(c.QueryParam("scope"))
	if err != nil {
		return fail(err)
	}
	podium, err := h.store.Podium(id, scope)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, podium)
}

// Summary returns counts, best and mean times per event, category and distance.
func (h *Handler) Summary(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	report, err := h.store.Summary(id)
	if err != nil {
		return fail(err)
	}
	counts, err := h.store.Counts(id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"results": report, "registrations": counts})
}
