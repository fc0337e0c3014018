package documents

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"io"

	"doc_builder_app_go/services/i18n"

	"github.com/a-h/templ"
	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
)

const (
	barcodeWidth  = 280
	barcodeHeight = 56
)

var policyColumns = []Column{
	{Title: "columns.coverage", Class: "col-name", Cell: nameCell},
	{Title: "columns.units", Class: "col-qty", Cell: textCell(func(i ItemView) string { return i.Quantity })},
	{Title: "columns.premium", Class: "col-price", Cell: textCell(func(i ItemView) string { return i.UnitPrice })},
	{Title: "columns.amount", Class: "col-amount", Cell: textCell(func(i ItemView) string { return i.Amount })},
}

// Policy is the insurance layout. The policy number is printed as a Code128
// barcode in the header of every page.
func Policy(p PageProps) templ.Component {
	return pageFrame(p, TemplatePolicy, join(
		PageHeader(p, policyBarcode(p.Document.Number)),
		ClientDetails(p, "blocks.policyholder"),
		CategoryPreview(p, "blocks.policy_details"),
		ItemsTable(p, policyColumns),
		Footer(p, nil),
	))
}

func policyBarcode(number string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if number == "" {
			return nil
		}
		uri, err := BarcodeDataURI(number, barcodeWidth, barcodeHeight)
		if err != nil {
			// Numbers Code128 cannot encode are printed as text only
			return nil
		}
		h := newWriter(ctx, w)
		h.raw(`<div class="policy-barcode"><img`)
		h.attr("src", uri)
		h.attr("alt", i18n.T(ctx, "document.barcode_alt", i18n.Args{"number": number}))
		h.attr("width", fmt.Sprint(barcodeWidth))
		h.attr("height", fmt.Sprint(barcodeHeight))
		h.raw(`></div>`)
		return h.err
	})
}

// BarcodeDataURI encodes value as a scaled Code128 PNG data URI
func BarcodeDataURI(value string, width, height int) (string, error) {
	bc, err := code128.Encode(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode barcode: %w", err)
	}
	scaled, err := barcode.Scale(bc, width, height)
	if err != nil {
		return "", fmt.Errorf("failed to scale barcode: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", fmt.Errorf("failed to encode barcode image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
