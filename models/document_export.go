package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentExport records a generated print-ready PDF
type DocumentExport struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DocumentID string   `gorm:"type:uuid;not null;index" json:"document_id"`
	Document   Document `gorm:"foreignKey:DocumentID" json:"-"`

	// File metadata
	FileName string `gorm:"not null" json:"file_name"`
	FilePath string `gorm:"not null" json:"-"` // storage key, not exposed
	FileSize int64  `gorm:"not null" json:"file_size"`

	// Pagination metadata for the printed version
	PageCount  int    `gorm:"not null;default:1" json:"page_count"`
	Paginated  bool   `gorm:"not null;default:true" json:"paginated"` // false when the single-page fallback was used
	ContentKey string `gorm:"index" json:"content_key"`

	// Delivery
	SentTo *string    `json:"sent_to,omitempty"`
	SentAt *time.Time `json:"sent_at,omitempty"`
}

// BeforeCreate hook to generate UUID
func (e *DocumentExport) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for DocumentExport model
func (DocumentExport) TableName() string {
	return "document_exports"
}

// GetDownloadURL returns the download route for this export
func (e *DocumentExport) GetDownloadURL() string {
	return "/api/documents/" + e.DocumentID + "/exports/" + e.ID + "/download"
}
