package handlers

import (
	"errors"
	"net/http"

	"doc_builder_app_go/config"
	"doc_builder_app_go/db"
	"doc_builder_app_go/models"
	"doc_builder_app_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Context keys set by main
const (
	ContextKeyConfig  = "config"
	ContextKeyPreview = "preview"
	ContextKeyExports = "exports"
)

// WithServices exposes the shared services to every handler
func WithServices(cfg *config.Config, preview *services.PreviewService, exports *services.ExportService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextKeyConfig, cfg)
			c.Set(ContextKeyPreview, preview)
			c.Set(ContextKeyExports, exports)
			return next(c)
		}
	}
}

func getPreview(c echo.Context) (*services.PreviewService, error) {
	preview, ok := c.Get(ContextKeyPreview).(*services.PreviewService)
	if !ok || preview == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "Preview service unavailable")
	}
	return preview, nil
}

func getExports(c echo.Context) (*services.ExportService, error) {
	exports, ok := c.Get(ContextKeyExports).(*services.ExportService)
	if !ok || exports == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "Export service unavailable")
	}
	return exports, nil
}

// loadDocument fetches the document named by the :id route parameter
func loadDocument(c echo.Context) (*models.Document, error) {
	doc, err := services.GetDocument(db.DB, c.Param("id"))
	if err != nil {
		return nil, serviceError(c, err)
	}
	return doc, nil
}

// serviceError maps service errors onto HTTP errors
func serviceError(c echo.Context, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Document not found")
	case errors.Is(err, services.ErrExportNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Export not found")
	case errors.Is(err, services.ErrNoRecipient):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Client has no email address")
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"error": verr.Message,
			"field": verr.Field,
		})
	}
	zap.L().Error("request failed",
		zap.String("path", c.Path()),
		zap.String("id", c.Param("id")),
		zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}
