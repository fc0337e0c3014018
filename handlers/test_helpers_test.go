package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"doc_builder_app_go/config"
	"doc_builder_app_go/db"
	"doc_builder_app_go/models"
	"doc_builder_app_go/services"
	"doc_builder_app_go/services/pagination"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	assert.NoError(t, err)

	err = testDB.AutoMigrate(
		&models.Document{},
		&models.LineItem{},
		&models.DocumentExport{},
	)
	assert.NoError(t, err)

	// Set global DB
	db.DB = testDB

	return testDB
}

// fixedMeasurer reports a 100px header, 30px table header, 100px footer
// and 150px per row, so five rows fit on a 1123px page
type fixedMeasurer struct{}

func (fixedMeasurer) Measure(ctx context.Context, req pagination.MeasureRequest) (pagination.MarkerReport, error) {
	header, table, footer := 100.0, 30.0, 100.0
	rows := make([]float64, req.ItemCount)
	for i := range rows {
		rows[i] = 150
	}
	return pagination.MarkerReport{PageHeaderContent: &header, TableHeader: &table, Footer: &footer, Rows: rows}, nil
}

func setupPreview(t *testing.T) *services.PreviewService {
	preview := services.NewPreviewService(fixedMeasurer{}, services.PreviewOptions{
		Layout:   pagination.DefaultLayout(),
		WidthPx:  794,
		Debounce: 10 * time.Millisecond,
		Timeout:  time.Second,
		CacheTTL: time.Minute,
	}, zap.NewNop())
	t.Cleanup(preview.Close)
	return preview
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Add config to context
	c.Set(ContextKeyConfig, &config.Config{
		Environment:   "test",
		EmailTestMode: true,
	})

	return e, c, rec
}

func createTestDocument(t *testing.T, database *gorm.DB, items int) *models.Document {
	t.Helper()
	doc := &models.Document{
		Kind:     models.KindInvoice,
		Number:   "INV-42",
		Category: models.CategoryRoofing,
		Currency: "USD",
		Business: models.Party{Name: "Top Roofing"},
		Client:   models.Party{Name: "Sam Client", Email: "sam@example.com"},
	}
	for i := 0; i < items; i++ {
		doc.Items = append(doc.Items, models.LineItem{Name: "Shingles", Quantity: float64(i + 1), UnitPrice: 20})
	}
	assert.NoError(t, services.CreateDocument(database, doc))
	loaded, err := services.GetDocument(database, doc.ID)
	assert.NoError(t, err)
	return loaded
}

func stringToPtr(s string) *string {
	return &s
}
