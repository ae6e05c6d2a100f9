package router

import (
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/handlers"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupOpsRoutes mounts the operational endpoints. Account flows have no HTTP routes.
func SetupOpsRoutes(e *echo.Echo, healthHandler *handlers.HealthHandler) {
	e.GET("/health", healthHandler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
