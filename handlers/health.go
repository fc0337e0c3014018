package handlers

import (
	"net/http"

	"doc_builder_app_go/db"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness and database reachability
func HealthHandler(c echo.Context) error {
	status := map[string]string{"status": "ok", "database": "ok"}
	if db.DB == nil {
		status["database"] = "uninitialized"
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}
