package jobs

import (
	"context"
	"fmt"
	"time"

	"doc_builder_app_go/models"
	"doc_builder_app_go/services"
	"doc_builder_app_go/services/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SchedulerOptions configures the background maintenance jobs
type SchedulerOptions struct {
	// ControllerIdle drops pagination controllers unused for this long
	ControllerIdle time.Duration
	// ExportRetention deletes exports older than this. Zero keeps them forever.
	ExportRetention time.Duration
	// Metrics counts purged exports. Nil disables it.
	Metrics *metrics.Metrics
}

// StartScheduler starts the maintenance jobs. Stop the returned cron on shutdown.
func StartScheduler(database *gorm.DB, preview *services.PreviewService, storage services.StorageProvider, opts SchedulerOptions, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc("@every 10m", func() {
		if n := preview.Prune(opts.ControllerIdle); n > 0 {
			log.Debug("pruned idle pagination controllers", zap.Int("count", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule controller pruning: %w", err)
	}

	if opts.ExportRetention > 0 {
		_, err = c.AddFunc("0 3 * * *", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			n, err := PurgeExpiredExports(ctx, database, storage, time.Now().Add(-opts.ExportRetention), log)
			opts.Metrics.AddPurgedExports(n)
			if err != nil {
				log.Error("export retention job failed", zap.Int("purged", n), zap.Error(err))
				return
			}
			log.Info("export retention job completed", zap.Int("purged", n))
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule export retention: %w", err)
		}
	}

	c.Start()
	log.Info("scheduler started", zap.Int("jobs", len(c.Entries())))
	return c, nil
}

// PurgeExpiredExports removes exports created before cutoff along with their
// stored files. An export whose file cannot be deleted is kept for the next run.
func PurgeExpiredExports(ctx context.Context, database *gorm.DB, storage services.StorageProvider, cutoff time.Time, log *zap.Logger) (int, error) {
	var expired []models.DocumentExport
	if err := database.WithContext(ctx).Where("created_at < ?", cutoff).Find(&expired).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch expired exports: %w", err)
	}

	purged := 0
	for _, export := range expired {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		if err := storage.Delete(ctx, export.FilePath); err != nil {
			log.Warn("failed to delete export file", zap.String("export_id", export.ID), zap.String("key", export.FilePath), zap.Error(err))
			continue
		}
		if err := database.WithContext(ctx).Delete(&export).Error; err != nil {
			log.Warn("failed to delete export record", zap.String("export_id", export.ID), zap.Error(err))
			continue
		}
		purged++
	}
	return purged, nil
}
