package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type createCategoryRequest struct {
	Name   string `json:"name"`
	MinAge int    `json:"minAge"`
	MaxAge int    `json:"maxAge"`
}

// Categories returns every category.
func (h *Handler) Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Categories())
}

// CreateCategory defines a new age band.
func (h *Handler) CreateCategory(c echo.Context) error {
	var req createCategoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cat, err := h.store.CreateCategory(req.Name, req.MinAge, req.MaxAge)
	if err != nil {
		return fail(err)
	}
	if err := h.repo.SaveCategory(c.Request().Context(), &cat); err != nil {
		h.log.Error("persist category", zap.Int64("category_id", cat.ID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "saving category failed")
	}

	return c.JSON(http.StatusCreated, cat)
}
