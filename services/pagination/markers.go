package pagination

import (
	"errors"
	"fmt"
	"math"
)

// Marker attributes every page template must emit so the measurement pass
// can find the regions it sizes.
const (
	AttrPreviewRoot       = "data-preview-root"
	AttrPageHeaderContent = "data-page-header-content"
	AttrClientDetails     = "data-client-details"
	AttrCategoryPreview   = "data-category-preview"
	AttrTableHeader       = "data-table-header"
	AttrFooter            = "data-footer"
	AttrTableRow          = "data-table-row"
)

// ErrUnmeasurable is returned when the rendered markup cannot produce a
// trustworthy set of heights. Callers fall back to a single page.
var ErrUnmeasurable = errors.New("layout is unmeasurable")

// MarkerReport is the raw output of a height oracle. A nil height means the
// marker was not found in the rendered subtree.
type MarkerReport struct {
	PageHeaderContent *float64  `json:"pageHeaderContent"`
	ClientDetails     *float64  `json:"clientDetails"`
	CategoryPreview   *float64  `json:"categoryPreview"`
	TableHeader       *float64  `json:"tableHeader"`
	Footer            *float64  `json:"footer"`
	Rows              []float64 `json:"rows"`
}

// MeasuredHeights holds the pixel heights of one measurement pass.
// RowHeights is aligned 1:1 with the line-item sequence.
type MeasuredHeights struct {
	FirstPageHeaderHeight      float64   `json:"first_page_header_height"`
	SubsequentPageHeaderHeight float64   `json:"subsequent_page_header_height"`
	TableHeaderHeight          float64   `json:"table_header_height"`
	FooterHeight               float64   `json:"footer_height"`
	RowHeights                 []float64 `json:"row_heights"`
}

// Heights converts the report into MeasuredHeights for itemCount line items.
func (r MarkerReport) Heights(itemCount int) (MeasuredHeights, error) {
	if r.PageHeaderContent == nil {
		return MeasuredHeights{}, fmt.Errorf("%w: missing %s", ErrUnmeasurable, AttrPageHeaderContent)
	}
	if r.TableHeader == nil {
		return MeasuredHeights{}, fmt.Errorf("%w: missing %s", ErrUnmeasurable, AttrTableHeader)
	}
	if r.Footer == nil {
		return MeasuredHeights{}, fmt.Errorf("%w: missing %s", ErrUnmeasurable, AttrFooter)
	}
	if itemCount > 0 && len(r.Rows) == 0 {
		return MeasuredHeights{}, fmt.Errorf("%w: no %s elements for %d items", ErrUnmeasurable, AttrTableRow, itemCount)
	}
	if len(r.Rows) != itemCount {
		return MeasuredHeights{}, fmt.Errorf("%w: found %d rows for %d items", ErrUnmeasurable, len(r.Rows), itemCount)
	}

	for name, v := range map[string]*float64{AttrClientDetails: r.ClientDetails, AttrCategoryPreview: r.CategoryPreview} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0) {
			return MeasuredHeights{}, fmt.Errorf("%w: %s height %v", ErrUnmeasurable, name, *v)
		}
	}

	header := *r.PageHeaderContent
	h := MeasuredHeights{
		FirstPageHeaderHeight:      header + optional(r.ClientDetails) + optional(r.CategoryPreview),
		SubsequentPageHeaderHeight: header,
		TableHeaderHeight:          *r.TableHeader,
		FooterHeight:               *r.Footer,
		RowHeights:                 append([]float64(nil), r.Rows...),
	}
	if err := h.Validate(itemCount); err != nil {
		return MeasuredHeights{}, err
	}
	return h, nil
}

// Validate rejects heights that a settled layout could not have produced.
// Zero is treated as "not laid out yet" for regions that always carry content.
func (h MeasuredHeights) Validate(itemCount int) error {
	if len(h.RowHeights) != itemCount {
		return fmt.Errorf("%w: %d row heights for %d items", ErrUnmeasurable, len(h.RowHeights), itemCount)
	}

	required := []struct {
		name  string
		value float64
	}{
		{"page header", h.SubsequentPageHeaderHeight},
		{"first page header", h.FirstPageHeaderHeight},
		{"table header", h.TableHeaderHeight},
		{"footer", h.FooterHeight},
	}
	for _, r := range required {
		if !positive(r.value) {
			return fmt.Errorf("%w: %s height %v", ErrUnmeasurable, r.name, r.value)
		}
	}
	for i, row := range h.RowHeights {
		if !positive(row) {
			return fmt.Errorf("%w: row %d height %v", ErrUnmeasurable, i, row)
		}
	}
	return nil
}

// optional treats an absent block as zero height.
func optional(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
