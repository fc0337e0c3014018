package services

import (
	"context"
	"strings"
	"testing"

	"doc_builder_app_go/services/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func estimateDocument(t *testing.T, n int, edit func(i int, name *string)) (pagination.MarkerReport, string) {
	t.Helper()
	doc := documentWithItems("doc-1", n)
	for i := range doc.Items {
		edit(i, &doc.Items[i].Name)
	}
	svc := NewPreviewService(nil, testPreviewOptions(), zap.NewNop())
	markup, err := svc.MeasurementMarkup(context.Background(), doc)
	require.NoError(t, err)

	report, err := NewMarkupEstimator(DefaultEstimatorOptions()).Measure(context.Background(), pagination.MeasureRequest{
		HTML:      markup,
		Width:     794,
		ItemCount: n,
	})
	require.NoError(t, err)
	return report, markup
}

func TestMarkupEstimator_ReportsEveryMarker(t *testing.T) {
	report, _ := estimateDocument(t, 4, func(int, *string) {})

	require.NotNil(t, report.PageHeaderContent)
	require.NotNil(t, report.ClientDetails)
	require.NotNil(t, report.TableHeader)
	require.NotNil(t, report.Footer)
	assert.Nil(t, report.CategoryPreview) // no category payload
	require.Len(t, report.Rows, 4)

	for _, row := range report.Rows {
		assert.Greater(t, row, 0.0)
	}
	assert.Greater(t, *report.PageHeaderContent, *report.TableHeader)

	heights, err := report.Heights(4)
	require.NoError(t, err)
	assert.Equal(t, *report.PageHeaderContent+*report.ClientDetails, heights.FirstPageHeaderHeight)
}

func TestMarkupEstimator_LongTextWraps(t *testing.T) {
	long := strings.Repeat("copper fitting with compression joint ", 20)
	report, _ := estimateDocument(t, 2, func(i int, name *string) {
		if i == 1 {
			*name = long
		}
	})
	require.Len(t, report.Rows, 2)
	assert.Greater(t, report.Rows[1], 2*report.Rows[0])
}

func TestMarkupEstimator_Deterministic(t *testing.T) {
	first, _ := estimateDocument(t, 5, func(int, *string) {})
	second, _ := estimateDocument(t, 5, func(int, *string) {})
	assert.Equal(t, first, second)
}

func TestMarkupEstimator_NarrowerIsTaller(t *testing.T) {
	_, markup := estimateDocument(t, 1, func(_ int, name *string) {
		*name = strings.Repeat("word ", 40)
	})
	e := NewMarkupEstimator(EstimatorOptions{})

	wide, err := e.Measure(context.Background(), pagination.MeasureRequest{HTML: markup, Width: 794, ItemCount: 1})
	require.NoError(t, err)
	narrow, err := e.Measure(context.Background(), pagination.MeasureRequest{HTML: markup, Width: 400, ItemCount: 1})
	require.NoError(t, err)
	assert.Greater(t, narrow.Rows[0], wide.Rows[0])
}

func TestMarkupEstimator_MissingRoot(t *testing.T) {
	report, err := NewMarkupEstimator(DefaultEstimatorOptions()).Measure(context.Background(), pagination.MeasureRequest{
		HTML:      `<html><body><table><tr data-table-row><td>x</td></tr></table></body></html>`,
		Width:     794,
		ItemCount: 1,
	})
	require.NoError(t, err)
	assert.Nil(t, report.PageHeaderContent)
	assert.Empty(t, report.Rows)

	_, err = report.Heights(1)
	assert.ErrorIs(t, err, pagination.ErrUnmeasurable)
}

func TestMarkupEstimator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMarkupEstimator(DefaultEstimatorOptions()).Measure(ctx, pagination.MeasureRequest{HTML: "<div></div>"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMarkupEstimator_DrivesPagination(t *testing.T) {
	svc := NewPreviewService(NewMarkupEstimator(DefaultEstimatorOptions()), testPreviewOptions(), zap.NewNop())
	defer svc.Close()

	out, err := svc.Paginate(context.Background(), documentWithItems("doc-1", 60))
	require.NoError(t, err)
	assert.Equal(t, pagination.StatePaginated, out.State)
	assert.Greater(t, out.TotalPages(), 1)
	assert.Equal(t, 60, countIndices(out.Pages))

	// Indices stay in order across pages
	next := 0
	for _, page := range out.Pages {
		for _, i := range page {
			assert.Equal(t, next, i)
			next++
		}
	}
}
