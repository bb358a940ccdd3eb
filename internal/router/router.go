package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-reservation/internal/handler"
	"github.com/iliyamo/parking-lot-reservation/internal/middleware"
	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

// RegisterRoutes registers routes that need no authentication.
// Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints and the
// authenticated /v1/me route.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterUser registers the driver-facing routes. All of them require
// a valid token; any role may reserve and browse.
func RegisterUser(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleUser, model.RoleAdmin))

	g.GET("/lots", h.ListLots)            // cached listing
	g.POST("/reservations", h.Reserve)    // claim a spot
	g.PUT("/reservations/active", h.Release)
	g.GET("/reservations", h.ListHistory) // full history
	g.POST("/exports", h.RequestExport)   // async CSV export
}

// RegisterAdmin registers lot management and reporting, restricted to
// the admin role.
func RegisterAdmin(e *echo.Echo, lots *handler.LotAdminHandler, reports *handler.AdminReportHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.POST("/lots", lots.CreateLot)
	g.GET("/lots/:id", lots.GetLot)
	g.PUT("/lots/:id", lots.UpdateLot)
	g.DELETE("/lots/:id", lots.DeleteLot)

	g.GET("/users", reports.ListUsers)
	g.GET("/reservations", reports.ListReservations)
	g.GET("/revenue", reports.Revenue)
	g.POST("/reports/activity", reports.RequestActivityReport)
}
