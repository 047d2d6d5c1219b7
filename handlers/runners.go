package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/racereg/models"
)

type createRunnerRequest struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	BirthDate        string `json:"birthDate"`
	Sex              string `json:"sex"`
	BloodType        string `json:"bloodType"`
	EmergencyContact string `json:"emergencyContact"`
}

type runnerData struct {
	*models.Runner
	Registrations []models.RegistrationRef `json:"registrations"`
}

// CreateRunner adds a runner profile.
func (h *Handler) CreateRunner(c echo.Context) error {
	var req createRunnerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	r, err := models.NewRunner(req.ID, req.Name)
	if err != nil {
		return fail(err)
	}
	if strings.TrimSpace(req.BirthDate) != "" {
		bd, err := parseDate(req.BirthDate)
		if err != nil {
			return fail(&models.ValidationError{Field: "birthDate", Msg: "expected YYYY-MM-DD"})
		}
		if bd.After(time.Now()) {
			return fail(&models.ValidationError{Field: "birthDate", Msg: "in the future"})
		}
		r.BirthDate = bd
	}
	r.Phone = strings.TrimSpace(req.Phone)
	r.Email = strings.TrimSpace(req.Email)
	r.Sex = strings.ToUpper(strings.TrimSpace(req.Sex))
	r.BloodType = strings.ToUpper(strings.TrimSpace(req.BloodType))
	r.EmergencyContact = strings.TrimSpace(req.EmergencyContact)

	saved, err := h.store.AddRunner(r)
	if err != nil {
		return fail(err)
	}
	if err := h.repo.SaveRunner(c.Request().Context(), saved); err != nil {
		h.log.Error("persist runner", zap.String("runner_id", saved.ID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "saving runner failed")
	}
	return c.JSON(http.StatusCreated, runnerData{Runner: saved, Registrations: []models.RegistrationRef{}})
}

// Runner returns a runner profile with references to its registrations.
func (h *Handler) Runner(c echo.Context) error {
	id := c.Param("id")
	r, err := h.store.Runner(id)
	if err != nil {
		return fail(err)
	}
	regs, err := h.store.RunnerRegistrations(id)
	if err != nil {
		return fail(err)
	}
	refs := make([]models.RegistrationRef, len(regs))
	for i, reg := range regs {
		refs[i] = models.RegistrationRef{ID: reg.ID, EventID: reg.EventID}
	}
	return c.JSON(http.StatusOK, runnerData{Runner: r, Registrations: refs})
}

// RunnerRegistrations lists a runner's registrations, optionally filtered by ?state=.
func (h *Handler) RunnerRegistrations(c echo.Context) error {
	state, filtered, err := stateFilter(c)
	if err != nil {
		return err
	}
	var states []models.RegistrationState
	if filtered {
		states = append(states, state)
	}
	regs, err := h.store.RunnerRegistrations(c.Param("id"), states...)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, regs)
}

// RunnerResults lists a runner's recorded times across events.
func (h *Handler) RunnerResults(c echo.Context) error {
	res, err := h.store.RunnerResults(c.Param("id"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, res)
}
