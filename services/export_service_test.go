package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"doc_builder_app_go/config"
	"doc_builder_app_go/models"
	"doc_builder_app_go/services/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var fakePDF = []byte("%PDF-1.7 fake")

type capturingRenderer struct {
	html string
	err  error
}

func (r *capturingRenderer) render(ctx context.Context, html string, opts PDFOptions) ([]byte, error) {
	r.html = html
	if r.err != nil {
		return nil, r.err
	}
	return fakePDF, nil
}

func setupExportTest(t *testing.T) (*gorm.DB, *models.Document, *PreviewService) {
	t.Helper()
	db := setupDocumentTestDB(t)
	doc := documentWithItems("", 10)
	for i := range doc.Items {
		doc.Items[i].ID = ""
	}
	require.NoError(t, CreateDocument(db, doc))

	preview := NewPreviewService(newFixedMeasurer(), testPreviewOptions(), zap.NewNop())
	t.Cleanup(preview.Close)
	return db, doc, preview
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "invoice-INV-1.pdf", ExportFileName(&models.Document{Kind: "invoice", Number: "INV-1"}))
	assert.Equal(t, "quote-Q_12_B.pdf", ExportFileName(&models.Document{Kind: "quote", Number: "Q 12/B"}))
	assert.Equal(t, "estimate.pdf", ExportFileName(&models.Document{Kind: "estimate"}))
	assert.Equal(t, "document.pdf", ExportFileName(&models.Document{}))
}

func TestExportService_Create(t *testing.T) {
	db, doc, preview := setupExportTest(t)
	storage := new(MockStorageProvider)
	renderer := &capturingRenderer{}

	storage.On("Put", mock.Anything,
		mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "documents/"+doc.ID+"/exports/") }),
		mock.Anything, ObjectMeta{ContentType: "application/pdf", Size: int64(len(fakePDF))},
	).Return(&StoredObject{Key: "documents/" + doc.ID + "/exports/stored.pdf"}, nil)

	svc := NewExportService(db, preview, storage, renderer.render, &config.Config{}, zap.NewNop())
	export, err := svc.Create(context.Background(), doc)
	require.NoError(t, err)
	storage.AssertExpectations(t)

	assert.Equal(t, doc.ID, export.DocumentID)
	assert.Equal(t, "invoice-INV-1.pdf", export.FileName)
	assert.Equal(t, "documents/"+doc.ID+"/exports/stored.pdf", export.FilePath)
	assert.Equal(t, int64(len(fakePDF)), export.FileSize)
	assert.Equal(t, 2, export.PageCount)
	assert.True(t, export.Paginated)
	assert.Equal(t, ContentKey(doc, 794, preview.opts.Layout), export.ContentKey)

	assert.Equal(t, 2, strings.Count(renderer.html, "data-page-index="))

	exports, err := ListExports(db, doc.ID)
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, export.ID, exports[0].ID)
}

func TestExportService_CreateRenderFailure(t *testing.T) {
	db, doc, preview := setupExportTest(t)
	storage := new(MockStorageProvider)
	renderer := &capturingRenderer{err: errors.New("chrome unavailable")}

	svc := NewExportService(db, preview, storage, renderer.render, &config.Config{}, zap.NewNop())
	_, err := svc.Create(context.Background(), doc)
	assert.ErrorContains(t, err, "chrome unavailable")
	storage.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExportService_CreateCountsResults(t *testing.T) {
	db, doc, preview := setupExportTest(t)
	storage := new(MockStorageProvider)
	storage.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&StoredObject{Key: "k.pdf"}, nil)

	reg := prometheus.NewRegistry()
	svc := NewExportService(db, preview, storage, (&capturingRenderer{}).render, &config.Config{}, zap.NewNop())
	svc.SetMetrics(metrics.New(reg, metrics.Config{Environment: "test"}))

	_, err := svc.Create(context.Background(), doc)
	require.NoError(t, err)

	failing := NewExportService(db, preview, storage, (&capturingRenderer{err: errors.New("no chrome")}).render, &config.Config{}, zap.NewNop())
	failing.metrics = svc.metrics
	_, err = failing.Create(context.Background(), doc)
	require.Error(t, err)

	expected := `
# HELP docbuilder_exports_total PDF exports by result.
# TYPE docbuilder_exports_total counter
docbuilder_exports_total{env="test",result="failed",service="doc-builder"} 1
docbuilder_exports_total{env="test",result="paginated",service="doc-builder"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "docbuilder_exports_total"))
}

func TestExportService_CreateRemovesOrphanOnRecordFailure(t *testing.T) {
	// No document_exports table, so recording the export fails
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Document{}, &models.LineItem{}))

	doc := documentWithItems("doc-orphan", 2)
	preview := NewPreviewService(newFixedMeasurer(), testPreviewOptions(), zap.NewNop())
	defer preview.Close()

	storage := new(MockStorageProvider)
	storage.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&StoredObject{Key: "orphan.pdf"}, nil)
	storage.On("Delete", mock.Anything, "orphan.pdf").Return(nil)

	svc := NewExportService(db, preview, storage, (&capturingRenderer{}).render, &config.Config{}, zap.NewNop())
	_, err = svc.Create(context.Background(), doc)
	assert.ErrorContains(t, err, "failed to record export")
	storage.AssertCalled(t, "Delete", mock.Anything, "orphan.pdf")
}

func TestExportService_Send(t *testing.T) {
	db, doc, preview := setupExportTest(t)
	export := &models.DocumentExport{DocumentID: doc.ID, FileName: "invoice-INV-1.pdf", FilePath: "k/invoice.pdf", PageCount: 2}
	require.NoError(t, db.Create(export).Error)

	storage := new(MockStorageProvider)
	for i := 0; i < 2; i++ {
		storage.On("Open", mock.Anything, "k/invoice.pdf").
			Return(io.NopCloser(bytes.NewReader(fakePDF)), ObjectMeta{ContentType: "application/pdf", Size: int64(len(fakePDF))}, nil).Once()
	}

	cfg := &config.Config{EmailTestMode: true}
	svc := NewExportService(db, preview, storage, nil, cfg, zap.NewNop())

	t.Run("Defaults to the client email", func(t *testing.T) {
		sent, err := svc.Send(context.Background(), doc, export, "")
		require.NoError(t, err)
		require.NotNil(t, sent.SentTo)
		assert.Equal(t, "jane@example.com", *sent.SentTo)
		assert.NotNil(t, sent.SentAt)

		stored, err := GetExport(db, doc.ID, export.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.SentTo)
		assert.Equal(t, "jane@example.com", *stored.SentTo)
	})

	t.Run("Explicit recipient", func(t *testing.T) {
		sent, err := svc.Send(context.Background(), doc, export, " office@acme.test ")
		require.NoError(t, err)
		assert.Equal(t, "office@acme.test", *sent.SentTo)
	})

	t.Run("No recipient", func(t *testing.T) {
		noEmail := *doc
		noEmail.Client.Email = ""
		_, err := svc.Send(context.Background(), &noEmail, export, "")
		assert.ErrorIs(t, err, ErrNoRecipient)
	})
}

func TestExportService_DownloadURLLocal(t *testing.T) {
	db, _, preview := setupExportTest(t)
	svc := NewExportService(db, preview, new(MockStorageProvider), nil, &config.Config{}, zap.NewNop())

	url, err := svc.DownloadURL(context.Background(), &models.DocumentExport{FilePath: "k.pdf"})
	require.NoError(t, err)
	assert.Empty(t, url)
}
