package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"doc_builder_app_go/models"

	"gorm.io/gorm"
)

var (
	// ErrDocumentNotFound is returned when no live document has the given id
	ErrDocumentNotFound = errors.New("document not found")
	// ErrExportNotFound is returned when a document has no such export
	ErrExportNotFound = errors.New("export not found")
)

// ValidationError describes a rejected document payload
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NormalizeDocument fills defaults and renumbers item positions in slice order
func NormalizeDocument(doc *models.Document) {
	if doc.Kind == "" {
		doc.Kind = models.KindInvoice
	}
	if doc.Category == "" {
		doc.Category = models.CategoryGeneral
	}
	if doc.Language == "" {
		doc.Language = "en"
	}
	if doc.Currency == "" {
		doc.Currency = "USD"
	}
	doc.Currency = strings.ToUpper(strings.TrimSpace(doc.Currency))
	for i := range doc.Items {
		doc.Items[i].Position = i
		doc.Items[i].DocumentID = doc.ID
	}
}

// ValidateDocument checks the invariants the renderer relies on
func ValidateDocument(doc *models.Document) error {
	if !models.IsValidKind(doc.Kind) {
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("unsupported kind %q", doc.Kind)}
	}
	if !models.IsValidCategory(doc.Category) {
		return &ValidationError{Field: "category", Message: fmt.Sprintf("unsupported category %q", doc.Category)}
	}
	if doc.TaxRate < 0 || doc.TaxRate > 100 || math.IsNaN(doc.TaxRate) {
		return &ValidationError{Field: "tax_rate", Message: "must be between 0 and 100"}
	}
	for i, item := range doc.Items {
		if strings.TrimSpace(item.Name) == "" {
			return &ValidationError{Field: fmt.Sprintf("items[%d].name", i), Message: "is required"}
		}
		if item.Quantity < 0 || math.IsNaN(item.Quantity) || math.IsInf(item.Quantity, 0) {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be a non-negative number"}
		}
		if math.IsNaN(item.UnitPrice) || math.IsInf(item.UnitPrice, 0) {
			return &ValidationError{Field: fmt.Sprintf("items[%d].unit_price", i), Message: "must be a number"}
		}
	}
	return nil
}

// GetDocument loads a document with its items in position order
func GetDocument(dbConn *gorm.DB, id string) (*models.Document, error) {
	var doc models.Document
	err := dbConn.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		First(&doc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return &doc, nil
}

// CreateDocument validates and stores a new document with its items
func CreateDocument(dbConn *gorm.DB, doc *models.Document) error {
	NormalizeDocument(doc)
	if err := ValidateDocument(doc); err != nil {
		return err
	}
	if err := dbConn.Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// ReplaceDocument overwrites the document's fields and item list
func ReplaceDocument(dbConn *gorm.DB, id string, doc *models.Document) (*models.Document, error) {
	existing, err := GetDocument(dbConn, id)
	if err != nil {
		return nil, err
	}

	doc.ID = existing.ID
	doc.CreatedAt = existing.CreatedAt
	NormalizeDocument(doc)
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	err = dbConn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear line items: %w", err)
		}
		items := doc.Items
		for i := range items {
			items[i].ID = ""
		}
		if err := tx.Omit("Items").Save(doc).Error; err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("failed to save line items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetDocument(dbConn, id)
}

// DeleteDocument soft-deletes a document. Items and exports are kept for audit.
func DeleteDocument(dbConn *gorm.DB, id string) error {
	res := dbConn.Delete(&models.Document{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// AppendLineItems adds items after the document's current last position
func AppendLineItems(dbConn *gorm.DB, documentID string, items []models.LineItem) (*models.Document, error) {
	doc, err := GetDocument(dbConn, documentID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return doc, nil
	}

	next := 0
	if n := len(doc.Items); n > 0 {
		next = doc.Items[n-1].Position + 1
	}
	for i := range items {
		items[i].ID = ""
		items[i].DocumentID = documentID
		items[i].Position = next + i
	}
	if err := dbConn.Create(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to append line items: %w", err)
	}
	return GetDocument(dbConn, documentID)
}

// ListExports returns a document's exports, newest first
func ListExports(dbConn *gorm.DB, documentID string) ([]models.DocumentExport, error) {
	var exports []models.DocumentExport
	if err := dbConn.Where("document_id = ?", documentID).Order("created_at DESC").Find(&exports).Error; err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return exports, nil
}

// GetExport loads one export of a document
func GetExport(dbConn *gorm.DB, documentID, exportID string) (*models.DocumentExport, error) {
	var export models.DocumentExport
	err := dbConn.First(&export, "id = ? AND document_id = ?", exportID, documentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, fmt.Errorf("failed to load export: %w", err)
	}
	return &export, nil
}
