package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LineItem is one billable row of a document. Position fixes its order.
type LineItem struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DocumentID string `gorm:"type:uuid;not null;index" json:"document_id"`
	Position   int    `gorm:"not null;default:0" json:"position"`

	Name        string  `gorm:"not null" json:"name"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	Quantity    float64 `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   float64 `gorm:"not null;default:0" json:"unit_price"`
	Taxable     bool    `gorm:"not null;default:false" json:"taxable"`
}

// BeforeCreate hook to generate UUID
func (i *LineItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for LineItem model
func (LineItem) TableName() string {
	return "line_items"
}
