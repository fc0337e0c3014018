package handlers

import (
	"errors"
	"net/http"

	"doc_builder_app_go/db"
	"doc_builder_app_go/services"

	"github.com/labstack/echo/v4"
)

// CreateExportHandler paginates, prints and stores a PDF of the document
func CreateExportHandler(c echo.Context) error {
	exports, err := getExports(c)
	if err != nil {
		return err
	}
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}

	export, err := exports.Create(c.Request().Context(), doc)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"export":       export,
		"download_url": export.GetDownloadURL(),
	})
}

// ListExportsHandler lists a document's exports, newest first
func ListExportsHandler(c echo.Context) error {
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}
	list, err := services.ListExports(db.DB, doc.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// DownloadExportHandler redirects to a signed URL (R2) or streams the file (local)
func DownloadExportHandler(c echo.Context) error {
	exports, err := getExports(c)
	if err != nil {
		return err
	}
	export, err := services.GetExport(db.DB, c.Param("id"), c.Param("exportId"))
	if err != nil {
		return serviceError(c, err)
	}
	ctx := c.Request().Context()

	url, err := exports.DownloadURL(ctx, export)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get download URL")
	}
	if url != "" {
		return c.Redirect(http.StatusTemporaryRedirect, url)
	}

	reader, meta, err := exports.Open(ctx, export)
	if errors.Is(err, services.ErrObjectNotFound) {
		return echo.NewHTTPError(http.StatusGone, "Export file is no longer available")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read file")
	}
	defer reader.Close()

	c.Response().Header().Set("Content-Disposition", "attachment; filename=\""+export.FileName+"\"")
	return c.Stream(http.StatusOK, meta.ContentType, reader)
}

type sendExportRequest struct {
	To string `json:"to" form:"to"`
}

// SendExportHandler emails the export to the client or to the given address
func SendExportHandler(c echo.Context) error {
	exports, err := getExports(c)
	if err != nil {
		return err
	}
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}
	export, err := services.GetExport(db.DB, doc.ID, c.Param("exportId"))
	if err != nil {
		return serviceError(c, err)
	}

	var req sendExportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request")
	}

	sent, err := exports.Send(c.Request().Context(), doc, export, req.To)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, sent)
}
