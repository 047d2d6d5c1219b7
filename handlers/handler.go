package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/racereg/models"
	"github.com/padraicbc/racereg/registry"
)

// Repository persists aggregates after each successful command.
type Repository interface {
	UserByName(ctx context.Context, username string) (*models.User, error)
	SaveCategory(ctx context.Context, c *models.Category) error
	SaveRunner(ctx context.Context, r *models.Runner) error
	SaveEvent(ctx context.Context, ev *models.Event) error
}

// Auth configures operator signin.
type Auth struct {
	Key      []byte
	Admins   []string
	TokenTTL time.Duration
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	store *registry.Store
	repo  Repository
	log   *zap.Logger
	auth  Auth
}

// New creates a Handler over the live store and its repository.
func New(store *registry.Store, repo Repository, auth Auth, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if auth.TokenTTL <= 0 {
		auth.TokenTTL = 30 * 24 * time.Hour
	}
	return &Handler{store: store, repo: repo, auth: auth, log: log}
}

// fail maps domain errors onto HTTP statuses.
func fail(err error) error {
	status := http.StatusInternalServerError
	switch {
	case models.IsValidation(err):
		status = http.StatusBadRequest
	case models.IsNotFound(err):
		status = http.StatusNotFound
	case models.IsConflict(err):
		status = http.StatusConflict
	case models.IsState(err):
		status = http.StatusUnprocessableEntity
	}
	return echo.NewHTTPError(status, err.Error())
}

func idParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// persistEvent saves the current snapshot of an event under the event's lock. The
// in-memory command has already succeeded, so a storage failure is reported but not rolled back.
func (h *Handler) persistEvent(c echo.Context, eventID int64) error {
	var saveErr error
	err := h.store.Persist(c.Request().Context(), eventID, func(ctx context.Context, ev *models.Event) error {
		saveErr = h.repo.SaveEvent(ctx, ev)
		return saveErr
	})
	if err != nil && saveErr == nil {
		return fail(err)
	}
	if saveErr != nil {
		h.log.Error("persist event", zap.Int64("event_id", eventID), zap.Error(saveErr))
		return echo.NewHTTPError(http.StatusInternalServerError, "saving event failed")
	}
	return nil
}

func stateFilter(c echo.Context) (models.RegistrationState, bool, error) {
	raw := strings.TrimSpace(c.QueryParam("state"))
	if raw == "" {
		return "", false, nil
	}
	st, err := models.ParseRegistrationState(raw)
	if err != nil {
		return "", false, fail(err)
	}
	return st, true, nil
}
