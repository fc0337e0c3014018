package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"doc_builder_app_go/config"
	"doc_builder_app_go/models"
	"doc_builder_app_go/services/metrics"
	"doc_builder_app_go/services/pagination"
	"doc_builder_app_go/templates/documents"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoRecipient is returned when an export is sent without an address
var ErrNoRecipient = errors.New("no recipient email address")

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportService prints paginated documents to PDF, stores them and emails them
type ExportService struct {
	db      *gorm.DB
	preview *PreviewService
	storage StorageProvider
	render  PDFRenderer
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewExportService wires the export pipeline. A nil render uses GeneratePDF.
func NewExportService(dbConn *gorm.DB, preview *PreviewService, storage StorageProvider, render PDFRenderer, cfg *config.Config, log *zap.Logger) *ExportService {
	if render == nil {
		render = GeneratePDF
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExportService{
		db:      dbConn,
		preview: preview,
		storage: storage,
		render:  render,
		cfg:     cfg,
		log:     log,
	}
}

// SetMetrics records export results on m
func (s *ExportService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// ExportFileName derives the attachment name from the document kind and number
func ExportFileName(doc *models.Document) string {
	name := doc.Kind
	if doc.Number != "" {
		name += "-" + doc.Number
	}
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = "document"
	}
	return name + ".pdf"
}

// Create paginates doc, prints it and records the stored PDF
func (s *ExportService) Create(ctx context.Context, doc *models.Document) (*models.DocumentExport, error) {
	ctx, span := otel.Tracer("doc_builder_app_go/services").Start(ctx, "export.create")
	defer span.End()

	export, err := s.create(ctx, doc)
	if err != nil {
		span.RecordError(err)
		s.metrics.IncExport("failed")
		return nil, err
	}
	if export.Paginated {
		s.metrics.IncExport("paginated")
	} else {
		s.metrics.IncExport("fallback")
	}
	return export, nil
}

func (s *ExportService) create(ctx context.Context, doc *models.Document) (*models.DocumentExport, error) {
	span := trace.SpanFromContext(ctx)

	html, outcome, err := s.preview.PrintHTML(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render print document: %w", err)
	}
	span.SetAttributes(
		attribute.String("document_id", doc.ID),
		attribute.Int("pages", outcome.TotalPages()),
		attribute.String("state", outcome.State.String()),
	)

	pdf, err := s.render(ctx, html, DefaultPDFOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to print PDF: %w", err)
	}

	key := GenerateExportKey(doc.ID)
	stored, err := s.storage.Put(ctx, key, bytes.NewReader(pdf), ObjectMeta{ContentType: "application/pdf", Size: int64(len(pdf))})
	if err != nil {
		return nil, fmt.Errorf("failed to store PDF: %w", err)
	}

	export := &models.DocumentExport{
		DocumentID: doc.ID,
		FileName:   ExportFileName(doc),
		FilePath:   stored.Key,
		FileSize:   int64(len(pdf)),
		PageCount:  outcome.TotalPages(),
		Paginated:  outcome.State == pagination.StatePaginated,
		ContentKey: outcome.Key,
	}
	if err := s.db.Create(export).Error; err != nil {
		// Do not leave an orphaned file behind
		if delErr := s.storage.Delete(ctx, stored.Key); delErr != nil {
			s.log.Warn("failed to remove orphaned export", zap.String("key", stored.Key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to record export: %w", err)
	}

	s.log.Info("document exported",
		zap.String("document_id", doc.ID),
		zap.String("export_id", export.ID),
		zap.Int("pages", export.PageCount),
		zap.Bool("paginated", export.Paginated),
		zap.Int64("size", export.FileSize))
	return export, nil
}

// Open returns the stored PDF of an export
func (s *ExportService) Open(ctx context.Context, export *models.DocumentExport) (io.ReadCloser, ObjectMeta, error) {
	return s.storage.Open(ctx, export.FilePath)
}

// DownloadURL returns a short-lived URL for the export when the storage
// backend can sign one. Other backends return an empty string.
func (s *ExportService) DownloadURL(ctx context.Context, export *models.DocumentExport) (string, error) {
	signer, ok := s.storage.(URLSigner)
	if !ok {
		return "", nil
	}
	return signer.SignURL(ctx, export.FilePath, 15*time.Minute)
}

// Send emails the export as an attachment. An empty to uses the client's email.
func (s *ExportService) Send(ctx context.Context, doc *models.Document, export *models.DocumentExport, to string) (*models.DocumentExport, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		to = strings.TrimSpace(doc.Client.Email)
	}
	if to == "" {
		return nil, ErrNoRecipient
	}

	reader, meta, err := s.Open(ctx, export)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	content, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	view := documents.NewDocumentView(doc)
	email, err := BuildExportEmail(to, doc.Language, ExportEmailData{
		ClientName:   view.Client.Name,
		BusinessName: view.Business.Name,
		Title:        view.Title,
		Number:       view.Number,
		Total:        view.Total,
		PageCount:    export.PageCount,
	}, EmailAttachment{Filename: export.FileName, ContentType: meta.ContentType, Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to build export email: %w", err)
	}

	if err := SendEmail(s.cfg, email); err != nil {
		return nil, err
	}

	now := time.Now()
	export.SentTo = &to
	export.SentAt = &now
	if err := s.db.Model(export).Updates(map[string]interface{}{"sent_to": to, "sent_at": now}).Error; err != nil {
		return nil, fmt.Errorf("failed to record delivery: %w", err)
	}
	s.log.Info("export sent", zap.String("export_id", export.ID), zap.String("to", to))
	return export, nil
}
