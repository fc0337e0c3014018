package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document kinds
const (
	KindInvoice  = "invoice"
	KindEstimate = "estimate"
	KindQuote    = "quote"
	KindPolicy   = "policy"
)

// Business categories
const (
	CategoryGeneral   = "general"
	CategoryPlumbing  = "plumbing"
	CategoryRoofing   = "roofing"
	CategoryLegal     = "legal"
	CategoryMedical   = "medical"
	CategoryInsurance = "insurance"
)

// Style densities
const (
	DensityCompact = "compact"
	DensityNormal  = "normal"
	DensityRelaxed = "relaxed"
)

// Party holds the contact block of either side of a document
type Party struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `gorm:"type:text" json:"address"`
	TaxID   string `json:"tax_id"`
}

// DocumentStyle carries the visual choices passed through to templates
type DocumentStyle struct {
	PrimaryColor string `json:"primary_color"`
	FontFamily   string `json:"font_family"`
	Density      string `json:"density"`
}

// Document is the assembled record a template renders
type Document struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Identification
	Kind      string     `gorm:"not null;default:invoice" json:"kind"`
	Number    string     `gorm:"index" json:"number"`
	IssueDate *time.Time `json:"issue_date,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`

	// Template selection
	Category   string `gorm:"not null;default:general" json:"category"`
	TemplateID string `json:"template_id"`
	Language   string `gorm:"not null;default:en" json:"language"`

	// Money
	Currency string  `gorm:"not null;default:USD" json:"currency"`
	TaxRate  float64 `gorm:"not null;default:0" json:"tax_rate"` // percentage, e.g. 8.25

	// Parties
	Business Party `gorm:"embedded;embeddedPrefix:business_" json:"business"`
	Client   Party `gorm:"embedded;embeddedPrefix:client_" json:"client"`

	// Category-specific fields, rendered as a key/value block on page one
	CategoryPayload datatypes.JSONMap `gorm:"type:json" json:"category_payload,omitempty"`

	Style datatypes.JSONType[DocumentStyle] `gorm:"type:json" json:"style"`

	// Summary text (may contain limited HTML, sanitized before rendering)
	Notes string `gorm:"type:text" json:"notes"`
	Terms string `gorm:"type:text" json:"terms"`

	Items []LineItem `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"items"`
}

// BeforeCreate hook to generate UUID
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Document model
func (Document) TableName() string {
	return "documents"
}

// IsValidKind checks if the kind is supported
func IsValidKind(kind string) bool {
	switch kind {
	case KindInvoice, KindEstimate, KindQuote, KindPolicy:
		return true
	}
	return false
}

// IsValidCategory checks if the business category is supported
func IsValidCategory(category string) bool {
	switch category {
	case CategoryGeneral, CategoryPlumbing, CategoryRoofing, CategoryLegal, CategoryMedical, CategoryInsurance:
		return true
	}
	return false
}
