package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/racereg/models"
	"github.com/padraicbc/racereg/registry"
)

type registerRequest struct {
	RunnerID   string `json:"runnerID"`
	CategoryID int64  `json:"categoryID"`
	Distance   string `json:"distance"`
	ShirtSize  string `json:"shirtSize"`
	Bib        int    `json:"bib"`
}

type recordTimeRequest struct {
	ElapsedSeconds *float64 `json:"elapsedSeconds"`
}

// Register enters a runner into an OPEN event.
func (h *Handler) Register(c echo.Context) error {
	eventID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	distance, err := models.ParseDistance(req.Distance)
	if err != nil {
		return fail(err)
	}
	size, err := models.ParseShirtSize(req.ShirtSize)
	if err != nil {
		return fail(err)
	}

	reg, err := h.store.Register(eventID, registry.RegistrationInput{
		RunnerID:   req.RunnerID,
		CategoryID: req.CategoryID,
		Distance:   distance,
		ShirtSize:  size,
		Bib:        req.Bib,
	})
	if err != nil {
		return fail(err)
	}
	if err := h.persistEvent(c, eventID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, reg)
}

// Registration returns one registration.
func (h *Handler) Registration(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	reg, err := h.store.Registration(id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, reg)
}

// RemoveRegistration deletes a registration from its event and runner.
func (h *Handler) RemoveRegistration(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	reg, err := h.store.Registration(id)
	if err != nil {
		return fail(err)
	}
	removed, err := h.store.RemoveRegistration(id)
	if err != nil {
		return fail(err)
	}
	if removed {
		if err := h.persistEvent(c, reg.EventID); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handler) transition(c echo.Context, fn func(int64) (models.Registration, error)) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	reg, err := fn(id)
	if err != nil {
		return fail(err)
	}
	if err := h.persistEvent(c, reg.EventID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reg)
}

// ConfirmPayment marks a registration PAID.
func (h *Handler) ConfirmPayment(c echo.Context) error {
	return h.transition(c, h.store.ConfirmPayment)
}

// ConfirmRegistration marks a PAID registration CONFIRMED.
func (h *Handler) ConfirmRegistration(c echo.Context) error {
	return h.transition(c, h.store.ConfirmRegistration)
}

// Cancel cancels a PENDING or PAID registration.
func (h *Handler) Cancel(c echo.Context) error {
	return h.transition(c, h.store.Cancel)
}

// RecordTime stores the elapsed seconds of a CONFIRMED registration.
func (h *Handler) RecordTime(c echo.Context) error {
	var req recordTimeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.ElapsedSeconds == nil {
		return fail(&models.ValidationError{Field: "elapsedSeconds", Msg: "required"})
	}
	return h.transition(c, func(id int64) (models.Registration, error) {
		return h.store.RecordTime(id, *req.ElapsedSeconds)
	})
}
