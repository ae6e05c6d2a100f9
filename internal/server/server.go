package server

import (
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/handlers"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/middleware"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/router"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// New creates and configures the ops Echo instance serving health and metrics
func New(checks map[string]handlers.HealthCheck) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())

	router.SetupOpsRoutes(e, handlers.NewHealthHandler(checks))
	return e
}
