package documents

import (
	"context"
	"io"
	"strconv"

	"doc_builder_app_go/models"
	"doc_builder_app_go/services/i18n"
	"doc_builder_app_go/services/pagination"

	"github.com/a-h/templ"
)

// PageProps is everything a renderer sees for one printed page
type PageProps struct {
	Document   DocumentView
	Items      []ItemView
	PageIndex  int // zero-based
	TotalPages int
	Style      models.DocumentStyle
}

// First reports whether this page carries the client and category blocks
func (p PageProps) First() bool { return p.PageIndex == 0 }

// Last reports whether this page carries the footer
func (p PageProps) Last() bool { return p.PageIndex == p.TotalPages-1 }

// Renderer renders a single page of a document
type Renderer func(PageProps) templ.Component

// htmlWriter writes markup and keeps the first error
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// label writes the translation of key in the render locale
func (h *htmlWriter) label(key string, args ...i18n.Args) {
	h.text(i18n.T(h.ctx, key, args...))
}

func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

func (h *htmlWriter) marker(name string) {
	h.raw(" " + name)
}

func (h *htmlWriter) render(c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(h.ctx, h.w)
	}
}

// Column describes one line-item table column. Title is a translation key.
type Column struct {
	Title string
	Class string
	Cell  func(ItemView) templ.Component
}

func textCell(get func(ItemView) string) func(ItemView) templ.Component {
	return func(item ItemView) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, templ.EscapeString(get(item)))
			return err
		})
	}
}

// nameCell renders the item name with its sanitized description below
func nameCell(item ItemView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<div class="item-name">`)
		h.text(item.Name)
		h.raw(`</div>`)
		if item.Description != "" {
			h.raw(`<div class="item-description">`)
			h.raw(item.Description)
			h.raw(`</div>`)
		}
		return h.err
	})
}

// PageHeader renders the header content repeated on every page
func PageHeader(p PageProps, extra templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		d := p.Document
		h := newWriter(ctx, w)
		h.raw(`<header class="page-header"`)
		h.marker(pagination.AttrPageHeaderContent)
		h.raw(`><div class="business"><h1>`)
		h.text(d.Business.Name)
		h.raw(`</h1>`)
		partyLines(h, d.Business)
		h.raw(`</div><div class="meta"><h2>`)
		h.text(d.Title)
		h.raw(`</h2>`)
		metaLine(h, "document.number", d.Number)
		metaLine(h, "document.issued", d.IssueDate)
		metaLine(h, "document.due", d.DueDate)
		h.raw(`<div class="page-number">`)
		h.label("document.page", i18n.Args{
			"page":  strconv.Itoa(p.PageIndex + 1),
			"total": strconv.Itoa(p.TotalPages),
		})
		h.raw(`</div></div>`)
		h.render(extra)
		h.raw(`</header>`)
		return h.err
	})
}

// ClientDetails renders the bill-to block under the heading key. Page one only.
func ClientDetails(p PageProps, heading string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if !p.First() || !p.Document.HasClient {
			return nil
		}
		h := newWriter(ctx, w)
		h.raw(`<section class="client-details"`)
		h.marker(pagination.AttrClientDetails)
		h.raw(`><h3>`)
		h.label(heading)
		h.raw(`</h3><div class="client-name">`)
		h.text(p.Document.Client.Name)
		h.raw(`</div>`)
		partyLines(h, p.Document.Client)
		h.raw(`</section>`)
		return h.err
	})
}

// CategoryPreview renders the category-specific detail block. Page one only.
func CategoryPreview(p PageProps, heading string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if !p.First() || !p.Document.HasDetails {
			return nil
		}
		h := newWriter(ctx, w)
		h.raw(`<section class="category-preview"`)
		h.marker(pagination.AttrCategoryPreview)
		h.raw(`><h3>`)
		h.label(heading)
		h.raw(`</h3><dl>`)
		for _, f := range p.Document.Fields {
			h.raw(`<div class="field"><dt>`)
			h.text(f.Label)
			h.raw(`</dt><dd>`)
			h.text(f.Value)
			h.raw(`</dd></div>`)
		}
		h.raw(`</dl></section>`)
		return h.err
	})
}

// ItemsTable renders the table header and this page's rows
func ItemsTable(p PageProps, columns []Column) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<table class="items"><thead`)
		h.marker(pagination.AttrTableHeader)
		h.raw(`><tr>`)
		for _, col := range columns {
			h.raw(`<th`)
			h.attr("class", col.Class)
			h.raw(`>`)
			h.label(col.Title)
			h.raw(`</th>`)
		}
		h.raw(`</tr></thead><tbody>`)
		for _, item := range p.Items {
			h.raw(`<tr`)
			h.marker(pagination.AttrTableRow)
			h.attr("data-item-id", item.ID)
			h.raw(`>`)
			for _, col := range columns {
				h.raw(`<td`)
				h.attr("class", col.Class)
				h.raw(`>`)
				h.render(col.Cell(item))
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

// Footer renders totals, notes and terms. Last page only.
func Footer(p PageProps, extra templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if !p.Last() {
			return nil
		}
		d := p.Document
		h := newWriter(ctx, w)
		h.raw(`<footer class="page-footer"`)
		h.marker(pagination.AttrFooter)
		h.raw(`><div class="totals">`)
		totalLine(h, i18n.T(ctx, "document.subtotal"), d.Subtotal, "")
		totalLine(h, d.TaxLabel, d.Tax, "")
		totalLine(h, i18n.T(ctx, "document.total"), d.Total, "grand-total")
		h.raw(`</div>`)
		if d.Notes != "" {
			h.raw(`<div class="notes"><h4>`)
			h.label("document.notes")
			h.raw(`</h4>`)
			h.raw(d.Notes)
			h.raw(`</div>`)
		}
		if d.Terms != "" {
			h.raw(`<div class="terms"><h4>`)
			h.label("document.terms")
			h.raw(`</h4>`)
			h.raw(d.Terms)
			h.raw(`</div>`)
		}
		h.render(extra)
		h.raw(`</footer>`)
		return h.err
	})
}

func partyLines(h *htmlWriter, party models.Party) {
	for _, line := range []string{party.Address, party.Email, party.Phone} {
		if line == "" {
			continue
		}
		h.raw(`<div>`)
		h.text(line)
		h.raw(`</div>`)
	}
	if party.TaxID != "" {
		h.raw(`<div>Tax ID: `)
		h.text(party.TaxID)
		h.raw(`</div>`)
	}
}

func metaLine(h *htmlWriter, label, value string) {
	if value == "" {
		return
	}
	h.raw(`<div><span class="label">`)
	h.label(label)
	h.raw(`</span> `)
	h.text(value)
	h.raw(`</div>`)
}

func totalLine(h *htmlWriter, label, value, class string) {
	h.raw(`<div class="total-line`)
	if class != "" {
		h.raw(" " + templ.EscapeString(class))
	}
	h.raw(`"><span>`)
	h.text(label)
	h.raw(`</span><span>`)
	h.text(value)
	h.raw(`</span></div>`)
}

// join renders components back to back
func join(parts ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, part := range parts {
			if part == nil {
				continue
			}
			if err := part.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// pageFrame wraps one page's blocks in the template's container
func pageFrame(p PageProps, template string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<div`)
		h.attr("class", "sheet template-"+template+" density-"+p.Style.Density)
		h.attr("data-page-index", strconv.Itoa(p.PageIndex))
		h.raw(`>`)
		h.render(body)
		h.raw(`</div>`)
		return h.err
	})
}
