package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// MeasureEngineChrome measures markup in headless Chrome
	MeasureEngineChrome = "chrome"
	// MeasureEngineEstimate estimates heights from font metrics
	MeasureEngineEstimate = "estimate"
)

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	UploadDir   string
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged instead of sent
	// Other
	AllowedOrigins   []string
	AppURL           string
	TursoDatabaseURL string
	TursoAuthToken   string
	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	// Measurement and pagination
	ChromePath         string
	MeasureEngine      string
	PageHeightPx       float64 // printable page height in CSS px
	PagePaddingPx      float64 // vertical padding subtracted from the page height
	PageWidthPx        float64 // container width used for measurement
	MeasureDebounce    time.Duration
	MeasureTimeout     time.Duration
	MeasureConcurrency int
	PaginationCacheTTL time.Duration
	// Tracing (OpenTelemetry)
	TracingEnabled       bool
	TracingEndpoint      string
	TracingSamplingRatio float64
	// Exports older than this many days are purged. 0 keeps them.
	ExportRetentionDays int
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")

	engine := strings.ToLower(getEnv("MEASURE_ENGINE", MeasureEngineChrome))
	if engine != MeasureEngineChrome && engine != MeasureEngineEstimate {
		log.Printf("[WARNING] Unknown MEASURE_ENGINE %q, using %s", engine, MeasureEngineChrome)
		engine = MeasureEngineChrome
	}

	return &Config{
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		DBPath:               getEnv("DB_PATH", "db/app.db"),
		Environment:          environment,
		UploadDir:            getEnv("UPLOAD_DIR", "static/uploads"),
		ResendAPIKey:         getEnv("RESEND_API_KEY", ""),
		EmailFrom:            getEnv("EMAIL_FROM", "documents@example.com"),
		EmailFromName:        getEnv("EMAIL_FROM_NAME", "Document Builder"),
		EmailTestMode:        getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		AllowedOrigins:       strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		AppURL:               getEnv("APP_URL", "http://localhost:8080"),
		TursoDatabaseURL:     getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:       getEnv("TURSO_AUTH_TOKEN", ""),
		R2AccountID:          getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:        getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:    getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:         getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:          getEnv("R2_PUBLIC_URL", ""),
		ChromePath:           getEnv("CHROME_PATH", ""),
		MeasureEngine:        engine,
		PageHeightPx:         getEnvFloat("PAGE_HEIGHT_PX", 1123), // A4 at 96 dpi
		PagePaddingPx:        getEnvFloat("PAGE_PADDING_PX", 96),
		PageWidthPx:          getEnvFloat("PAGE_WIDTH_PX", 794),
		MeasureDebounce:      time.Duration(getEnvInt("MEASURE_DEBOUNCE_MS", 150)) * time.Millisecond,
		MeasureTimeout:       time.Duration(getEnvInt("MEASURE_TIMEOUT_MS", 15000)) * time.Millisecond,
		MeasureConcurrency:   getEnvInt("MEASURE_CONCURRENCY", 2),
		PaginationCacheTTL:   time.Duration(getEnvInt("PAGINATION_CACHE_TTL_MINUTES", 30)) * time.Minute,
		TracingEnabled:       getEnvBool("OTEL_ENABLED", false),
		TracingEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		TracingSamplingRatio: getEnvFloat("OTEL_SAMPLING_RATIO", 0.1),
		ExportRetentionDays:  getEnvInt("EXPORT_RETENTION_DAYS", 90),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		log.Printf("[WARNING] Invalid integer for %s: %q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		log.Printf("[WARNING] Invalid number for %s: %q, using %g", key, value, defaultValue)
		return defaultValue
	}
	return f
}
