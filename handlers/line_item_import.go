package handlers

import (
	"net/http"

	"doc_builder_app_go/db"
	"doc_builder_app_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// GetLineItemTemplateHandler serves the bulk line item Excel template
func GetLineItemTemplateHandler(c echo.Context) error {
	buf, err := services.GenerateLineItemTemplate()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate template")
	}

	c.Response().Header().Set("Content-Disposition", "attachment; filename=line_items_template.xlsx")
	return c.Blob(http.StatusOK, services.XLSXMimeType, buf.Bytes())
}

// ImportLineItemsHandler appends line items from an uploaded workbook
func ImportLineItemsHandler(c echo.Context) error {
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No file uploaded"})
	}
	if err := services.ValidateSpreadsheetUpload(file); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to open file"})
	}
	defer src.Close()

	result, err := services.ParseLineItems(src)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}

	updated, err := services.AppendLineItems(db.DB, doc.ID, result.Items)
	if err != nil {
		return serviceError(c, err)
	}
	// Keep the source workbook next to the document's exports
	if services.Storage != nil {
		if _, err := services.PutUpload(c.Request().Context(), services.Storage, file, services.GenerateImportKey(doc.ID, file.Filename)); err != nil {
			zap.L().Warn("failed to archive line item upload", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
	if result.SuccessCount > 0 {
		if preview, err := getPreview(c); err == nil {
			preview.Touch(updated)
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_processed":          result.TotalProcessed,
		"success_count":            result.SuccessCount,
		"failed_count":             result.FailedCount,
		"skipped_over_limit_count": result.SkippedOverLimitCount,
		"errors":                   result.Errors,
		"document":                 updated,
	})
}
