package documents

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"doc_builder_app_go/models"
	"doc_builder_app_go/services/i18n"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

// UGC policy for notes, terms and descriptions. Policies are safe for concurrent use.
var richText = bluemonday.UGCPolicy()

var (
	hexColor   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	fontFamily = regexp.MustCompile(`^[A-Za-z0-9 ,'\-]+$`)
)

const (
	defaultPrimaryColor = "#1f2937"
	defaultFontFamily   = "Helvetica, Arial, sans-serif"
	dateLayout          = "Jan 2, 2006"
)

// ItemView is a line item ready for rendering
type ItemView struct {
	ID          string
	Name        string
	Description string // sanitized HTML
	Quantity    string
	UnitPrice   string
	Amount      string
	Taxable     bool
}

// Field is one key/value pair of the category detail block
type Field struct {
	Label string
	Value string
}

// DocumentView holds the render-ready values of a document
type DocumentView struct {
	ID         string
	Kind       string
	Title      string
	Number     string
	IssueDate  string
	DueDate    string
	Category   string
	Language   string
	Currency   string
	Business   models.Party
	Client     models.Party
	Fields     []Field
	Notes      string // sanitized HTML
	Terms      string // sanitized HTML
	Subtotal   string
	TaxLabel   string
	Tax        string
	Total      string
	Style      models.DocumentStyle
	Items      []ItemView
	HasClient  bool
	HasDetails bool
}

// NewDocumentView computes totals and sanitizes user content. Item order is kept.
func NewDocumentView(doc *models.Document) DocumentView {
	lang := doc.Language
	if lang == "" {
		lang = "en"
	}
	v := DocumentView{
		ID:       doc.ID,
		Kind:     doc.Kind,
		Title:    i18n.Translate(lang, kindKey(doc.Kind)),
		Number:   doc.Number,
		Category: doc.Category,
		Language: lang,
		Currency: doc.Currency,
		Business: doc.Business,
		Client:   doc.Client,
		Fields:   categoryFields(doc.CategoryPayload, lang),
		Notes:    richText.Sanitize(doc.Notes),
		Terms:    richText.Sanitize(doc.Terms),
		Style:    normalizeStyle(doc.Style.Data()),
	}
	v.IssueDate = formatDate(doc.IssueDate)
	v.DueDate = formatDate(doc.DueDate)
	v.HasClient = doc.Client != (models.Party{})
	v.HasDetails = len(v.Fields) > 0

	subtotal := decimal.Zero
	taxable := decimal.Zero
	v.Items = make([]ItemView, 0, len(doc.Items))
	for _, item := range doc.Items {
		qty := decimal.NewFromFloat(item.Quantity)
		price := decimal.NewFromFloat(item.UnitPrice)
		amount := qty.Mul(price).Round(2)
		subtotal = subtotal.Add(amount)
		if item.Taxable {
			taxable = taxable.Add(amount)
		}

		iv := ItemView{
			ID:        item.ID,
			Name:      item.Name,
			Quantity:  qty.String(),
			UnitPrice: v.money(price),
			Amount:    v.money(amount),
			Taxable:   item.Taxable,
		}
		if item.Description != nil {
			iv.Description = richText.Sanitize(*item.Description)
		}
		v.Items = append(v.Items, iv)
	}

	rate := decimal.NewFromFloat(doc.TaxRate)
	tax := taxable.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	v.Subtotal = v.money(subtotal)
	v.Tax = v.money(tax)
	v.TaxLabel = i18n.Translate(lang, "document.tax", i18n.Args{"rate": rate.String()})
	v.Total = v.money(subtotal.Add(tax))
	return v
}

func (v DocumentView) money(d decimal.Decimal) string {
	if v.Currency == "" {
		return d.StringFixed(2)
	}
	return v.Currency + " " + d.StringFixed(2)
}

func kindKey(kind string) string {
	if !models.IsValidKind(kind) {
		kind = models.KindInvoice
	}
	return "document.kinds." + kind
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func normalizeStyle(s models.DocumentStyle) models.DocumentStyle {
	if !hexColor.MatchString(s.PrimaryColor) {
		s.PrimaryColor = defaultPrimaryColor
	}
	if s.FontFamily == "" || !fontFamily.MatchString(s.FontFamily) {
		s.FontFamily = defaultFontFamily
	}
	switch s.Density {
	case models.DensityCompact, models.DensityRelaxed:
	default:
		s.Density = models.DensityNormal
	}
	return s
}

// categoryFields flattens the payload into label order
func categoryFields(payload map[string]interface{}, lang string) []Field {
	if len(payload) == 0 {
		return nil
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		val := formatValue(payload[k], lang)
		if val == "" {
			continue
		}
		fields = append(fields, Field{Label: humanize(k), Value: val})
	}
	return fields
}

func formatValue(v interface{}, lang string) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		if t {
			return i18n.Translate(lang, "values.yes")
		}
		return i18n.Translate(lang, "values.no")
	case float64:
		return decimal.NewFromFloat(t).String()
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := formatValue(p, lang); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// humanize turns "policy_holder" or "policyHolder" into "Policy holder"
func humanize(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '_' || r == '-':
			b.WriteByte(' ')
		case r >= 'A' && r <= 'Z' && i > 0:
			b.WriteByte(' ')
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	s := strings.Join(strings.Fields(b.String()), " ")
	if s == "" {
		return key
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
