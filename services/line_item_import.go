package services

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"doc_builder_app_go/models"

	"github.com/xuri/excelize/v2"
)

// MaxImportRows caps how many line items one upload may add
const MaxImportRows = 500

const (
	sheetInstructions = "Instructions"
	sheetLineItems    = "Line Items"
)

var lineItemHeaders = []string{
	"Name*",       // A
	"Description", // B
	"Quantity*",   // C
	"Unit Price*", // D
	"Taxable",     // E
}

// ImportResult contains the summary of the import process
type ImportResult struct {
	TotalProcessed        int
	SuccessCount          int
	FailedCount           int
	SkippedOverLimitCount int
	Errors                []string
	Items                 []models.LineItem `json:"-"`
}

// GenerateLineItemTemplate generates the Excel template for bulk line items
func GenerateLineItemTemplate() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetInstructions)

	// --- Instructions Sheet ---
	f.SetCellValue(sheetInstructions, "A1", "Bulk line item import")
	f.SetCellValue(sheetInstructions, "A3", "Considerations:")
	f.SetCellValue(sheetInstructions, "A4", "- Fill the \"Line Items\" sheet, one item per row. Row 1 is the header.")
	f.SetCellValue(sheetInstructions, "A5", "- Columns marked with * are required.")
	f.SetCellValue(sheetInstructions, "A6", "- Quantity must be zero or more. Unit price may be negative for discounts.")
	f.SetCellValue(sheetInstructions, "A7", "- Taxable accepts yes/no, true/false or 1/0. Empty means not taxable.")
	f.SetCellValue(sheetInstructions, "A8", fmt.Sprintf("- At most %d rows are imported per upload.", MaxImportRows))
	f.SetCellValue(sheetInstructions, "A9", "- Imported items are appended after the document's existing items.")

	mainTitleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	f.SetCellStyle(sheetInstructions, "A1", "A1", mainTitleStyle)
	f.SetColWidth(sheetInstructions, "A", "A", 80)

	// --- Line Items Sheet ---
	f.NewSheet(sheetLineItems)
	for i, header := range lineItemHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetLineItems, cell, header)
	}
	f.SetColWidth(sheetLineItems, "A", "A", 30)
	f.SetColWidth(sheetLineItems, "B", "B", 50)
	f.SetColWidth(sheetLineItems, "C", "E", 14)

	// Example rows
	f.SetCellValue(sheetLineItems, "A2", "Copper pipe 15mm")
	f.SetCellValue(sheetLineItems, "B2", "Per metre, fitted")
	f.SetCellValue(sheetLineItems, "C2", 12)
	f.SetCellValue(sheetLineItems, "D2", 4.75)
	f.SetCellValue(sheetLineItems, "E2", "yes")
	f.SetCellValue(sheetLineItems, "A3", "Labour")
	f.SetCellValue(sheetLineItems, "C3", 3)
	f.SetCellValue(sheetLineItems, "D3", 65)
	f.SetCellValue(sheetLineItems, "E3", "no")

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheetLineItems, "A1", "E1", headerStyle)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

// ParseLineItems reads the line items sheet of an uploaded workbook. Invalid
// rows are reported in the result and skipped; remaining rows are returned in
// sheet order.
func ParseLineItems(file io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheet := sheetLineItems
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		// Accept workbooks whose data sheet was renamed if it is still second
		sheets := f.GetSheetList()
		if len(sheets) < 2 {
			return nil, fmt.Errorf("invalid excel format: missing %q sheet", sheetLineItems)
		}
		sheet = sheets[1]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read line items sheet: %w", err)
	}

	result := &ImportResult{Errors: []string{}}
	for i, row := range rows {
		if i == 0 {
			continue
		} // Header
		if blankRow(row) {
			continue
		}

		result.TotalProcessed++
		if len(result.Items) >= MaxImportRows {
			result.SkippedOverLimitCount++
			continue
		}

		item, err := parseLineItemRow(row)
		if err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		result.Items = append(result.Items, item)
		result.SuccessCount++
	}

	return result, nil
}

func parseLineItemRow(row []string) (models.LineItem, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	item := models.LineItem{Name: cell(0)}
	if item.Name == "" {
		return item, fmt.Errorf("name is required")
	}
	if desc := cell(1); desc != "" {
		item.Description = &desc
	}

	qty, err := parseNumber(cell(2))
	if err != nil {
		return item, fmt.Errorf("invalid quantity %q", cell(2))
	}
	if qty < 0 {
		return item, fmt.Errorf("quantity must be zero or more")
	}
	item.Quantity = qty

	price, err := parseNumber(cell(3))
	if err != nil {
		return item, fmt.Errorf("invalid unit price %q", cell(3))
	}
	item.UnitPrice = price

	taxable, err := parseFlag(cell(4))
	if err != nil {
		return item, err
	}
	item.Taxable = taxable
	return item, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.Abs(v) > 1e15 {
		return 0, fmt.Errorf("out of range")
	}
	return v, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "no", "n", "false", "0":
		return false, nil
	case "yes", "y", "true", "1", "x":
		return true, nil
	}
	return false, fmt.Errorf("invalid taxable value %q", s)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
