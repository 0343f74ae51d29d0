package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	JWTSecret     string
	DefaultLocale string
	GeoIPDBPath   string
	CORSOrigins   []string

	StorageDriver    string
	StoragePath      string
	StorageBaseURL   string
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	S3PublicBaseURL  string
	FallbackImageURL string

	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIOrg            string
	OpenAIVisionModel    string
	OpenAIRecommendModel string
	GeminiAPIKey         string
	GeminiModel          string
	GeminiBaseURL        string

	CatalogSource             string
	CatalogVariant            string
	CatalogSheetIndex         int
	CatalogXLSXPath           string
	CatalogCacheTTL           time.Duration
	GiftSheetID               string
	GoogleServiceAccountEmail string
	GooglePrivateKey          string
	AgeBracketsFile           string
	DefaultEntryName          string
	FallbackOrder             []string

	RedisURL                  string
	TriggerMode               string
	StylizeBaseURL            string
	StylizeQueueKey           string
	KafkaBrokers              []string
	KafkaTopic                string
	TriggerFailureMarksFailed bool

	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
	MaxUploadBytes    int64
	MaxImageDimension int
	MaxImagePixels    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          port,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "ko"),
		GeoIPDBPath:   os.Getenv("GEOIP_DB_PATH"),
		CORSOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", "fs")),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		S3Bucket:         getEnv("S3_BUCKET", "imageFile"),
		S3Region:         getEnv("S3_REGION", "ap-northeast-2"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3AccessKey:      os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:      os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicBaseURL:  os.Getenv("S3_PUBLIC_BASE_URL"),
		FallbackImageURL: os.Getenv("FALLBACK_IMAGE_URL"),

		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:            os.Getenv("OPENAI_ORG"),
		OpenAIVisionModel:    getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
		OpenAIRecommendModel: getEnv("OPENAI_RECOMMEND_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		CatalogSource:             strings.ToLower(getEnv("CATALOG_SOURCE", "sheets")),
		CatalogVariant:            strings.ToLower(getEnv("CATALOG_VARIANT", "general")),
		CatalogSheetIndex:         getEnvInt("CATALOG_SHEET_INDEX", -1),
		CatalogXLSXPath:           os.Getenv("CATALOG_XLSX_PATH"),
		CatalogCacheTTL:           getEnvDuration("CATALOG_CACHE_TTL", time.Hour),
		GiftSheetID:               os.Getenv("GIFT_SHEET_ID"),
		GoogleServiceAccountEmail: os.Getenv("GOOGLE_SERVICE_ACCOUNT_EMAIL"),
		GooglePrivateKey:          strings.ReplaceAll(os.Getenv("GOOGLE_PRIVATE_KEY"), `\n`, "\n"),
		AgeBracketsFile:           os.Getenv("AGE_BRACKETS_FILE"),
		DefaultEntryName:          os.Getenv("DEFAULT_ENTRY_NAME"),
		FallbackOrder:             splitList(os.Getenv("FALLBACK_ORDER")),

		RedisURL:                  os.Getenv("REDIS_URL"),
		TriggerMode:               strings.ToLower(getEnv("TRIGGER_MODE", "http")),
		StylizeBaseURL:            getEnv("STYLIZE_BASE_URL", "http://localhost:"+port),
		StylizeQueueKey:           getEnv("STYLIZE_QUEUE_KEY", "iffy:stylize"),
		KafkaBrokers:              splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:                getEnv("KAFKA_TOPIC", "iffy.stylize"),
		TriggerFailureMarksFailed: getEnvBool("TRIGGER_FAILURE_MARKS_FAILED", false),

		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		MaxImageDimension: getEnvInt("MAX_IMAGE_DIMENSION", 1536),
		MaxImagePixels:    getEnvInt("MAX_IMAGE_PIXELS", 40_000_000),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.StorageDriver {
	case "fs", "s3":
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER %q is not supported", cfg.StorageDriver)
	}
	if cfg.StorageDriver == "s3" && cfg.S3PublicBaseURL == "" {
		return nil, fmt.Errorf("S3_PUBLIC_BASE_URL is required for the s3 storage driver")
	}

	switch cfg.CatalogSource {
	case "sheets":
		if cfg.GiftSheetID == "" || cfg.GoogleServiceAccountEmail == "" || cfg.GooglePrivateKey == "" {
			return nil, fmt.Errorf("GIFT_SHEET_ID, GOOGLE_SERVICE_ACCOUNT_EMAIL and GOOGLE_PRIVATE_KEY are required for the sheets catalog")
		}
	case "xlsx":
		if cfg.CatalogXLSXPath == "" {
			return nil, fmt.Errorf("CATALOG_XLSX_PATH is required for the xlsx catalog")
		}
	default:
		return nil, fmt.Errorf("CATALOG_SOURCE %q is not supported", cfg.CatalogSource)
	}

	switch cfg.TriggerMode {
	case "http", "noop":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the redis trigger")
		}
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is required for the kafka trigger")
		}
	default:
		return nil, fmt.Errorf("TRIGGER_MODE %q is not supported", cfg.TriggerMode)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "1h") or plain seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
