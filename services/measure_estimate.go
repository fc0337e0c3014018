package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"doc_builder_app_go/services/pagination"

	"github.com/go-pdf/fpdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// pxToPt converts CSS pixels (96 dpi) to PDF points (72 dpi)
const pxToPt = 0.75

// EstimatorOptions tunes the text metrics used by MarkupEstimator
type EstimatorOptions struct {
	FontFamily   string  // core PDF font used for glyph widths
	FontSizePx   float64 // body font size
	LineHeight   float64 // multiple of the font size
	BlockPadding float64 // vertical padding added to each marker block, in px
	RowPadding   float64 // vertical padding added to each table row, in px
	CellPadding  float64 // horizontal padding inside a table cell, in px
}

// DefaultEstimatorOptions matches the built-in template stylesheet
func DefaultEstimatorOptions() EstimatorOptions {
	return EstimatorOptions{
		FontFamily:   "Helvetica",
		FontSizePx:   14,
		LineHeight:   1.4,
		BlockPadding: 16,
		RowPadding:   12,
		CellPadding:  8,
	}
}

// MarkupEstimator reports marker heights without a browser by wrapping each
// block's text at the container width using core font metrics. It is
// deterministic, which makes it the oracle for tests and Chrome-less hosts.
type MarkupEstimator struct {
	opts EstimatorOptions
}

// NewMarkupEstimator creates an estimator. Zero fields fall back to defaults.
func NewMarkupEstimator(opts EstimatorOptions) *MarkupEstimator {
	def := DefaultEstimatorOptions()
	if opts.FontFamily == "" {
		opts.FontFamily = def.FontFamily
	}
	if opts.FontSizePx <= 0 {
		opts.FontSizePx = def.FontSizePx
	}
	if opts.LineHeight <= 0 {
		opts.LineHeight = def.LineHeight
	}
	if opts.BlockPadding < 0 {
		opts.BlockPadding = 0
	}
	if opts.RowPadding < 0 {
		opts.RowPadding = 0
	}
	if opts.CellPadding < 0 {
		opts.CellPadding = 0
	}
	return &MarkupEstimator{opts: opts}
}

// Measure parses req.HTML and estimates the height of every marker inside
// the preview root. Missing markers are reported absent.
func (e *MarkupEstimator) Measure(ctx context.Context, req pagination.MeasureRequest) (pagination.MarkerReport, error) {
	if err := ctx.Err(); err != nil {
		return pagination.MarkerReport{}, err
	}

	doc, err := html.Parse(strings.NewReader(req.HTML))
	if err != nil {
		return pagination.MarkerReport{}, fmt.Errorf("failed to parse markup: %w", err)
	}

	root := findFirst(doc, pagination.AttrPreviewRoot)
	if root == nil {
		return pagination.MarkerReport{}, nil
	}

	width := req.Width
	if width <= 0 {
		width = 794
	}

	// fpdf instances are not safe for concurrent use
	pdf := fpdf.New("P", "pt", "A4", "")
	m := &textMetrics{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
		opts:      e.opts,
	}

	block := func(attr string) *float64 {
		n := findFirst(root, attr)
		if n == nil {
			return nil
		}
		h := m.blockHeight(n, width) + e.opts.BlockPadding
		return &h
	}

	report := pagination.MarkerReport{
		PageHeaderContent: block(pagination.AttrPageHeaderContent),
		ClientDetails:     block(pagination.AttrClientDetails),
		CategoryPreview:   block(pagination.AttrCategoryPreview),
		TableHeader:       block(pagination.AttrTableHeader),
		Footer:            block(pagination.AttrFooter),
	}
	for _, row := range findAll(root, pagination.AttrTableRow) {
		report.Rows = append(report.Rows, m.rowHeight(row, width))
	}
	if err := pdf.Error(); err != nil {
		return pagination.MarkerReport{}, fmt.Errorf("failed to load font metrics: %w", err)
	}
	return report, nil
}

type textMetrics struct {
	pdf       *fpdf.Fpdf
	translate func(string) string
	opts      EstimatorOptions
}

// headingScale maps heading tags to font size multipliers
var headingScale = map[atom.Atom]float64{
	atom.H1: 1.6,
	atom.H2: 1.3,
	atom.H3: 1.15,
	atom.H4: 1.05,
}

func (m *textMetrics) lineHeight(scale float64) float64 {
	return m.opts.FontSizePx * scale * m.opts.LineHeight
}

// lines returns how many lines text wraps to at width px
func (m *textMetrics) lines(text string, width, scale float64, bold bool) int {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return 0
	}
	style := ""
	if bold {
		style = "B"
	}
	m.pdf.SetFont(m.opts.FontFamily, style, m.opts.FontSizePx*scale*pxToPt)
	w := math.Max(width*pxToPt, 1)
	n := len(m.pdf.SplitLines([]byte(m.translate(text)), w))
	if n == 0 {
		n = 1
	}
	return n
}

// blockHeight stacks the inline runs and block children of n
func (m *textMetrics) blockHeight(n *html.Node, width float64) float64 {
	if isRow(n) {
		return m.rowHeight(n, width)
	}

	scale := 1.0
	if s, ok := headingScale[n.DataAtom]; ok {
		scale = s
	}
	bold := scale > 1 || n.DataAtom == atom.Th || n.DataAtom == atom.Strong || n.DataAtom == atom.B

	var (
		height float64
		inline strings.Builder
	)
	flush := func() {
		height += float64(m.lines(inline.String(), width, scale, bold)) * m.lineHeight(scale)
		inline.Reset()
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			inline.WriteString(c.Data)
			inline.WriteByte(' ')
		case c.Type != html.ElementNode || skipped(c):
		case c.DataAtom == atom.Br:
			flush()
		case c.DataAtom == atom.Img:
			flush()
			height += attrFloat(c, "height")
		case isBlock(c):
			flush()
			height += m.blockHeight(c, width)
		default:
			inline.WriteString(textContent(c))
			inline.WriteByte(' ')
		}
	}
	flush()
	return height
}

// rowHeight lays the row's cells side by side and takes the tallest
func (m *textMetrics) rowHeight(n *html.Node, width float64) float64 {
	var cells []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && !skipped(c) {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		return m.blockHeight(&html.Node{Type: html.ElementNode, FirstChild: n.FirstChild}, width) + m.opts.RowPadding
	}

	cellWidth := width/float64(len(cells)) - 2*m.opts.CellPadding
	var tallest float64
	for _, cell := range cells {
		tallest = math.Max(tallest, m.blockHeight(cell, cellWidth))
	}
	if tallest == 0 {
		tallest = m.lineHeight(1)
	}
	return tallest + m.opts.RowPadding
}

func isRow(n *html.Node) bool {
	return n.DataAtom == atom.Tr || hasAttr(n, pagination.AttrTableRow)
}

func isBlock(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Div, atom.P, atom.Section, atom.Header, atom.Footer, atom.Article,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Dl, atom.Dt, atom.Dd,
		atom.Table, atom.Thead, atom.Tbody, atom.Tfoot, atom.Tr,
		atom.Blockquote, atom.Pre, atom.Hr, atom.Figure:
		return true
	}
	return false
}

func skipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Template, atom.Noscript:
		return true
	}
	return hasAttr(n, "hidden")
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func attrFloat(n *html.Node, key string) float64 {
	for _, a := range n.Attr {
		if a.Key == key {
			v, err := strconv.ParseFloat(strings.TrimSuffix(a.Val, "px"), 64)
			if err == nil && v > 0 {
				return v
			}
		}
	}
	return 0
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && skipped(n) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// findFirst returns the first element under n (inclusive) carrying attr
func findFirst(n *html.Node, attr string) *html.Node {
	if n.Type == html.ElementNode && hasAttr(n, attr) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, attr); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every element under n carrying attr, in document order
func findAll(n *html.Node, attr string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasAttr(n, attr) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}
