package handlers

import (
	"github.com/labstack/echo/v4"

	mw "github.com/padraicbc/racereg/middleware"
)

// Routes mounts the API on e. Reads are public; commands need a valid JWT.
func (h *Handler) Routes(e *echo.Echo) {
	api := e.Group("/api")

	// Public
	api.POST("/signin", h.Signin)
	api.GET("/categories", h.Categories)
	api.GET("/events", h.Events)
	api.GET("/events/:id", h.Event)
	api.GET("/events/:id/registrations", h.EventRegistrations)
	api.GET("/events/:id/bibs/:bib", h.HasBib)
	api.GET("/events/:id/results", h.Results)
	api.GET("/events/:id/podium", h.Podium)
	api.GET("/events/:id/summary", h.Summary)
	api.GET("/registrations/:id", h.Registration)
	api.GET("/runners/:id", h.Runner)
	api.GET("/runners/:id/registrations", h.RunnerRegistrations)
	api.GET("/runners/:id/results", h.RunnerResults)

	// Protected – require valid JWT in Authorization header
	admin := api.Group("", mw.JWT(h.auth.Key))
	admin.POST("/password-hash", h.PasswordHash)
	admin.POST("/categories", h.CreateCategory)
	admin.POST("/events", h.CreateEvent)
	admin.POST("/events/:id/categories", h.AddEventCategory)
	admin.PUT("/events/:id/state", h.SetEventState)
	admin.POST("/events/:id/registrations", h.Register)
	admin.POST("/events/:id/rank", h.Rank)
	admin.POST("/runners", h.CreateRunner)
	admin.DELETE("/registrations/:id", h.RemoveRegistration)
	admin.POST("/registrations/:id/pay", h.ConfirmPayment)
	admin.POST("/registrations/:id/confirm", h.ConfirmRegistration)
	admin.POST("/registrations/:id/cancel", h.Cancel)
	admin.POST("/registrations/:id/time", h.RecordTime)
}
