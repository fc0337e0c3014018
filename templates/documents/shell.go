package documents

import (
	"context"
	"io"
	"strconv"

	"doc_builder_app_go/middleware"
	"doc_builder_app_go/models"
	"doc_builder_app_go/services/pagination"

	"github.com/a-h/templ"
)

// Sheet is the printed page geometry in CSS px
type Sheet struct {
	WidthPx   float64
	HeightPx  float64
	PaddingPx float64 // total vertical padding, split evenly top and bottom
}

// ShellProps configures the HTML document wrapping the pages
type ShellProps struct {
	Title    string
	Language string
	Style    models.DocumentStyle // normalized, see NewDocumentView
	Sheet    Sheet
	// Paginated fixes every sheet to one printed page. Unpaginated sheets
	// grow with their content (interactive view and measurement).
	Paginated bool
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// Shell renders the standalone HTML document around pages
func Shell(props ShellProps, pages []templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<!DOCTYPE html><html`)
		h.attr("lang", props.Language)
		h.raw(`><head><meta charset="UTF-8"><title>`)
		h.text(props.Title)
		h.raw(`</title><style`)
		if nonce := middleware.GetNonce(ctx); nonce != "" {
			h.attr("nonce", nonce)
		}
		h.raw(`>`)
		h.raw(stylesheet(props))
		h.raw(`</style></head><body><div`)
		h.marker(pagination.AttrPreviewRoot)
		h.attr("class", "preview-root")
		h.raw(`>`)
		for _, page := range pages {
			h.render(page)
		}
		h.raw(`</div></body></html>`)
		return h.err
	})
}

func stylesheet(props ShellProps) string {
	s := props.Sheet
	half := px(s.PaddingPx / 2)
	height := "min-height:" + px(s.HeightPx) + ";"
	if props.Paginated {
		height = "height:" + px(s.HeightPx) + ";overflow:hidden;"
	}
	return `@page{size:` + px(s.WidthPx) + ` ` + px(s.HeightPx) + `;margin:0}` +
		`*{box-sizing:border-box}` +
		`body{margin:0;font-family:` + props.Style.FontFamily + `;font-size:14px;line-height:1.4;color:#111827}` +
		`.preview-root{width:` + px(s.WidthPx) + `}` +
		`.sheet{width:` + px(s.WidthPx) + `;` + height + `padding:` + half + ` 48px;background:#fff;break-after:page;page-break-after:always}` +
		`.sheet:last-child{break-after:auto;page-break-after:auto}` +
		`.page-header{display:flex;justify-content:space-between;padding:8px 0;border-bottom:2px solid ` + props.Style.PrimaryColor + `}` +
		`.page-header h1{margin:0;font-size:22px;color:` + props.Style.PrimaryColor + `}` +
		`.page-header h2{margin:0;font-size:18px;text-transform:uppercase}` +
		`.meta{text-align:right}.page-number{color:#6b7280;font-size:12px}` +
		`.client-details,.category-preview{padding:8px 0}` +
		`.category-preview dl{display:grid;grid-template-columns:1fr 1fr;gap:4px 16px;margin:0}` +
		`.category-preview dt{font-weight:bold}.category-preview dd{margin:0}` +
		`table.items{width:100%;border-collapse:collapse}` +
		`table.items th{text-align:left;padding:6px 8px;background:` + props.Style.PrimaryColor + `;color:#fff}` +
		`table.items td{padding:6px 8px;vertical-align:top;border-bottom:1px solid #e5e7eb}` +
		`.col-qty,.col-price,.col-amount{text-align:right;white-space:nowrap}` +
		`.item-description{color:#4b5563;font-size:12px}` +
		`.page-footer{padding:8px 0}.totals{margin-left:auto;width:50%}` +
		`.total-line{display:flex;justify-content:space-between}.grand-total{font-weight:bold;font-size:16px}` +
		`.template-modern .page-header{border-bottom-width:6px}` +
		`.template-policy .policy-barcode{margin-top:8px}` +
		`.density-compact td{padding:3px 6px}.density-relaxed td{padding:10px 8px}`
}
