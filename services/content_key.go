package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"

	"doc_builder_app_go/models"
	"doc_builder_app_go/services/pagination"
)

type itemFingerprint struct {
	Name        string  `json:"n"`
	Description *string `json:"d,omitempty"`
	Quantity    float64 `json:"q"`
	UnitPrice   float64 `json:"p"`
	Taxable     bool    `json:"t"`
}

// contentFingerprint holds every field that can change rendered heights
type contentFingerprint struct {
	Kind       string                 `json:"kind"`
	Number     string                 `json:"number"`
	IssueDate  *time.Time             `json:"issue_date"`
	DueDate    *time.Time             `json:"due_date"`
	Category   string                 `json:"category"`
	TemplateID string                 `json:"template_id"`
	Language   string                 `json:"language"`
	Currency   string                 `json:"currency"`
	TaxRate    float64                `json:"tax_rate"`
	Business   models.Party           `json:"business"`
	Client     models.Party           `json:"client"`
	Payload    map[string]interface{} `json:"payload"`
	Style      models.DocumentStyle   `json:"style"`
	Notes      string                 `json:"notes"`
	Terms      string                 `json:"terms"`
	Items      []itemFingerprint      `json:"items"`
	Width      float64                `json:"width"`
	Layout     pagination.Layout      `json:"layout"`
}

// ContentKey identifies one content version of doc at a container width and
// page layout. Equal keys always paginate identically.
func ContentKey(doc *models.Document, width float64, layout pagination.Layout) string {
	fp := contentFingerprint{
		Kind:       doc.Kind,
		Number:     doc.Number,
		IssueDate:  doc.IssueDate,
		DueDate:    doc.DueDate,
		Category:   doc.Category,
		TemplateID: doc.TemplateID,
		Language:   doc.Language,
		Currency:   doc.Currency,
		TaxRate:    finite(doc.TaxRate),
		Business:   doc.Business,
		Client:     doc.Client,
		Payload:    finitePayload(doc.CategoryPayload),
		Style:      doc.Style.Data(),
		Notes:      doc.Notes,
		Terms:      doc.Terms,
		Items:      make([]itemFingerprint, len(doc.Items)),
		Width:      finite(width),
		Layout:     pagination.Layout{PageHeight: finite(layout.PageHeight), PagePadding: finite(layout.PagePadding)},
	}
	for i, item := range doc.Items {
		fp.Items[i] = itemFingerprint{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    finite(item.Quantity),
			UnitPrice:   finite(item.UnitPrice),
			Taxable:     item.Taxable,
		}
	}

	// encoding/json sorts map keys, so the payload encodes canonically
	b, err := json.Marshal(fp)
	if err != nil {
		// a payload value json cannot encode is left out of the key
		fp.Payload = nil
		b, _ = json.Marshal(fp)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// finite maps NaN and Inf, which json cannot encode, to zero
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func finitePayload(payload map[string]interface{}) map[string]interface{} {
	if payload == nil {
		return nil
	}
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = finiteValue(v)
	}
	return out
}

func finiteValue(v interface{}) interface{} {
	switch val := v.(type) {
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case map[string]interface{}:
		return finitePayload(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = finiteValue(item)
		}
		return out
	default:
		return v
	}
}
