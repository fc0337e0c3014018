package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"doc_builder_app_go/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned when a key has no stored object
var ErrObjectNotFound = errors.New("stored object not found")

// ErrInvalidKey is returned for keys that are empty or escape the store root
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectMeta describes a stored object
type ObjectMeta struct {
	ContentType string
	Size        int64
}

// StoredObject is the result of a successful Put
type StoredObject struct {
	Key string
	ObjectMeta
}

// StorageProvider keeps exported PDFs and archived uploads
type StorageProvider interface {
	Put(ctx context.Context, key string, body io.Reader, meta ObjectMeta) (*StoredObject, error)
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectMeta, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

// URLSigner is implemented by backends that can hand out temporary
// download links instead of streaming through the server.
type URLSigner interface {
	SignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Storage is the process-wide provider set by InitializeStorage
var Storage StorageProvider

// InitializeStorage selects R2 when it is configured and reachable, and the
// local upload directory otherwise.
func InitializeStorage(cfg *config.Config) {
	log := zap.L()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	provider, err := NewStorage(ctx, cfg)
	if err != nil {
		log.Warn("object storage unavailable, using local storage", zap.Error(err))
		provider = NewLocalStorage(cfg.UploadDir)
	}
	Storage = provider
	log.Info("storage ready", zap.String("provider", provider.Name()))
}

// NewStorage builds the configured provider. Local storage is returned when
// R2 credentials are absent. A configured but unreachable bucket is an error.
func NewStorage(ctx context.Context, cfg *config.Config) (StorageProvider, error) {
	if !r2Configured(cfg) {
		return NewLocalStorage(cfg.UploadDir), nil
	}
	r2, err := NewR2Storage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := r2.Ping(ctx); err != nil {
		return nil, err
	}
	return r2, nil
}

func r2Configured(cfg *config.Config) bool {
	return cfg.R2AccountID != "" && cfg.R2AccessKeyID != "" && cfg.R2SecretAccessKey != "" && cfg.R2BucketName != ""
}

// PutUpload stores a multipart upload under key
func PutUpload(ctx context.Context, store StorageProvider, file *multipart.FileHeader, key string) (*StoredObject, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(file.Filename)
	}
	return store.Put(ctx, key, src, ObjectMeta{ContentType: contentType, Size: file.Size})
}

// cleanKey normalizes key to a slash-separated relative path
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".xlsx": XLSXMimeType,
	".html": "text/html; charset=utf-8",
	".png":  "image/png",
}

func contentTypeFor(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

func newObjectName(ext string) string {
	return fmt.Sprintf("%s_%d%s", uuid.New().String(), time.Now().Unix(), ext)
}

// GenerateExportKey creates a storage key for an exported document PDF
func GenerateExportKey(documentID string) string {
	return path.Join("documents", documentID, "exports", newObjectName(".pdf"))
}

// GenerateImportKey creates a storage key for an uploaded line-item spreadsheet
func GenerateImportKey(documentID, originalFilename string) string {
	return path.Join("documents", documentID, "imports", newObjectName(strings.ToLower(filepath.Ext(originalFilename))))
}
