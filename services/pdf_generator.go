package services

import (
	"context"
	"fmt"
	"os"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// chromeAllocatorOptions returns the headless flags shared by printing and measuring.
// An empty chromePath uses the browser chromedp finds on the host.
func chromeAllocatorOptions(chromePath string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	return opts
}

// Paper is a sheet size in inches, portrait
type Paper struct {
	Width, Height float64
}

var papers = map[string]Paper{
	"A4":     {Width: 8.27, Height: 11.69},
	"letter": {Width: 8.5, Height: 11},
	"legal":  {Width: 8.5, Height: 14},
}

// Margins are in inches
type Margins struct {
	Top, Right, Bottom, Left float64
}

// PDFOptions controls how Chrome prints a document
type PDFOptions struct {
	PageSize  string // A4, letter or legal; anything else prints letter
	Landscape bool
	Margins   Margins
}

// DefaultPDFOptions prints A4 portrait without margins. Page padding is part of
// the rendered markup, so the printer adds none of its own.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{PageSize: "A4"}
}

// Paper resolves the sheet, rotated for landscape
func (o PDFOptions) Paper() Paper {
	p, ok := papers[o.PageSize]
	if !ok {
		p = papers["letter"]
	}
	if o.Landscape {
		p.Width, p.Height = p.Height, p.Width
	}
	return p
}

// PDFRenderer prints a complete HTML document
type PDFRenderer func(ctx context.Context, htmlContent string, options PDFOptions) ([]byte, error)

// NewPDFRenderer prints with the Chrome at chromePath, starting a browser per call
func NewPDFRenderer(chromePath string) PDFRenderer {
	return func(ctx context.Context, htmlContent string, options PDFOptions) ([]byte, error) {
		return printPDF(ctx, chromePath, htmlContent, options)
	}
}

// GeneratePDF prints with the Chrome named by CHROME_PATH
func GeneratePDF(ctx context.Context, htmlContent string, options PDFOptions) ([]byte, error) {
	return printPDF(ctx, os.Getenv("CHROME_PATH"), htmlContent, options)
}

func printPDF(ctx context.Context, chromePath, htmlContent string, options PDFOptions) ([]byte, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, chromeAllocatorOptions(chromePath)...)
	defer allocCancel()
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	paper := options.Paper()
	m := options.Margins
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		setDocumentContent(htmlContent),
		// fonts change line wrapping, so wait as the measurer does
		chromedp.Evaluate(`document.fonts ? document.fonts.ready.then(() => true) : true`, nil, awaitPromise),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPaperWidth(paper.Width).
				WithPaperHeight(paper.Height).
				WithMarginTop(m.Top).
				WithMarginRight(m.Right).
				WithMarginBottom(m.Bottom).
				WithMarginLeft(m.Left).
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return pdf, nil
}

// setDocumentContent replaces the main frame's document with htmlContent
func setDocumentContent(htmlContent string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		frameTree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
	})
}
