package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"doc_builder_app_go/models"
	"doc_builder_app_go/services"
	"doc_builder_app_go/services/pagination"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type mockStorage struct {
	services.StorageProvider
	mock.Mock
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func setupJobsTestDB(t *testing.T) *gorm.DB {
	database, err := gorm.Open(sqlite.Open("file:"+uuid.New().String()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&models.Document{}, &models.LineItem{}, &models.DocumentExport{}))
	return database
}

func createExport(t *testing.T, database *gorm.DB, documentID, key string, createdAt time.Time) *models.DocumentExport {
	export := &models.DocumentExport{DocumentID: documentID, FileName: "invoice.pdf", FilePath: key, FileSize: 10, CreatedAt: createdAt}
	require.NoError(t, database.Create(export).Error)
	return export
}

func TestPurgeExpiredExports(t *testing.T) {
	database := setupJobsTestDB(t)
	doc := &models.Document{Kind: models.KindInvoice}
	require.NoError(t, database.Create(doc).Error)

	now := time.Now()
	old := createExport(t, database, doc.ID, "old.pdf", now.Add(-100*24*time.Hour))
	stuck := createExport(t, database, doc.ID, "stuck.pdf", now.Add(-95*24*time.Hour))
	fresh := createExport(t, database, doc.ID, "fresh.pdf", now.Add(-time.Hour))

	storage := new(mockStorage)
	storage.On("Delete", mock.Anything, "old.pdf").Return(nil)
	storage.On("Delete", mock.Anything, "stuck.pdf").Return(errors.New("bucket unavailable"))

	n, err := PurgeExpiredExports(context.Background(), database, storage, now.Add(-90*24*time.Hour), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	storage.AssertExpectations(t)
	storage.AssertNotCalled(t, "Delete", mock.Anything, "fresh.pdf")

	var remaining []models.DocumentExport
	require.NoError(t, database.Order("created_at").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, stuck.ID, remaining[0].ID)
	assert.Equal(t, fresh.ID, remaining[1].ID)

	_, err = services.GetExport(database, doc.ID, old.ID)
	assert.Error(t, err)
}

func TestPurgeExpiredExportsCancelled(t *testing.T) {
	database := setupJobsTestDB(t)
	doc := &models.Document{Kind: models.KindInvoice}
	require.NoError(t, database.Create(doc).Error)
	createExport(t, database, doc.ID, "old.pdf", time.Now().Add(-48*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := PurgeExpiredExports(ctx, database, new(mockStorage), time.Now(), zap.NewNop())
	assert.Error(t, err)
}

func TestStartScheduler(t *testing.T) {
	preview := services.NewPreviewService(nil, services.PreviewOptions{Layout: pagination.DefaultLayout(), WidthPx: 794}, zap.NewNop())
	defer preview.Close()

	t.Run("Retention disabled", func(t *testing.T) {
		c, err := StartScheduler(nil, preview, nil, SchedulerOptions{ControllerIdle: time.Hour}, zap.NewNop())
		require.NoError(t, err)
		defer c.Stop()
		assert.Len(t, c.Entries(), 1)
	})

	t.Run("Retention enabled", func(t *testing.T) {
		c, err := StartScheduler(nil, preview, nil, SchedulerOptions{ControllerIdle: time.Hour, ExportRetention: 24 * time.Hour}, zap.NewNop())
		require.NoError(t, err)
		defer c.Stop()
		assert.Len(t, c.Entries(), 2)
	})
}
