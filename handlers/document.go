package handlers

import (
	"net/http"

	"doc_builder_app_go/db"
	"doc_builder_app_go/models"
	"doc_builder_app_go/services"

	"github.com/labstack/echo/v4"
)

// CreateDocumentHandler stores an assembled document and schedules its pagination
func CreateDocumentHandler(c echo.Context) error {
	var doc models.Document
	if err := c.Bind(&doc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid document payload")
	}
	doc.ID = ""
	for i := range doc.Items {
		doc.Items[i].ID = ""
	}

	if err := services.CreateDocument(db.DB, &doc); err != nil {
		return serviceError(c, err)
	}

	if preview, err := getPreview(c); err == nil {
		preview.Touch(&doc)
	}
	return c.JSON(http.StatusCreated, doc)
}

// GetDocumentHandler returns a document with its items
func GetDocumentHandler(c echo.Context) error {
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// UpdateDocumentHandler replaces a document and its items
func UpdateDocumentHandler(c echo.Context) error {
	var doc models.Document
	if err := c.Bind(&doc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid document payload")
	}

	updated, err := services.ReplaceDocument(db.DB, c.Param("id"), &doc)
	if err != nil {
		return serviceError(c, err)
	}

	if preview, err := getPreview(c); err == nil {
		preview.Touch(updated)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteDocumentHandler removes a document and drops its pagination state
func DeleteDocumentHandler(c echo.Context) error {
	id := c.Param("id")
	if err := services.DeleteDocument(db.DB, id); err != nil {
		return serviceError(c, err)
	}
	if preview, err := getPreview(c); err == nil {
		preview.Forget(id)
	}
	return c.NoContent(http.StatusNoContent)
}
