package services

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateLineItemTemplate(t *testing.T) {
	buf, err := GenerateLineItemTemplate()
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetInstructions, sheetLineItems}, f.GetSheetList())

	header, err := f.GetCellValue(sheetLineItems, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Name*", header)
}

func TestParseLineItems_Template(t *testing.T) {
	buf, err := GenerateLineItemTemplate()
	require.NoError(t, err)

	result, err := ParseLineItems(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Zero(t, result.FailedCount)
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	assert.Equal(t, "Copper pipe 15mm", first.Name)
	require.NotNil(t, first.Description)
	assert.Equal(t, "Per metre, fitted", *first.Description)
	assert.Equal(t, 12.0, first.Quantity)
	assert.Equal(t, 4.75, first.UnitPrice)
	assert.True(t, first.Taxable)

	assert.Nil(t, result.Items[1].Description)
	assert.False(t, result.Items[1].Taxable)
}

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheetInstructions)
	f.NewSheet(sheetLineItems)
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, f.SetSheetRow(sheetLineItems, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseLineItems_InvalidRows(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Name*", "Description", "Quantity*", "Unit Price*", "Taxable"},
		{"Valid", "", 1, 10, "y"},
		{"", "no name", 1, 10, ""},
		{"Bad qty", "", "lots", 10, ""},
		{"Negative", "", -2, 10, ""},
		{"Bad flag", "", 1, 10, "maybe"},
		{},
		{"Discount", "", 1, -5, "no"},
	})

	result, err := ParseLineItems(buf)
	require.NoError(t, err)
	assert.Equal(t, 6, result.TotalProcessed)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 4, result.FailedCount)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Row 3")
	assert.Contains(t, result.Errors[1], "invalid quantity")

	require.Len(t, result.Items, 2)
	assert.Equal(t, "Discount", result.Items[1].Name)
	assert.Equal(t, -5.0, result.Items[1].UnitPrice)
}

func TestParseLineItems_Limit(t *testing.T) {
	rows := [][]interface{}{{"Name*", "Description", "Quantity*", "Unit Price*", "Taxable"}}
	for i := 0; i < MaxImportRows+3; i++ {
		rows = append(rows, []interface{}{fmt.Sprintf("Item %d", i), "", 1, 1, ""})
	}

	result, err := ParseLineItems(workbook(t, rows))
	require.NoError(t, err)
	assert.Len(t, result.Items, MaxImportRows)
	assert.Equal(t, 3, result.SkippedOverLimitCount)
}

func TestParseLineItems_NotAWorkbook(t *testing.T) {
	_, err := ParseLineItems(bytes.NewBufferString("name,qty\n"))
	assert.Error(t, err)
}
