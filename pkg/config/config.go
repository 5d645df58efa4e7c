package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	StorageDriverLocal = "local"
	StorageDriverGCS   = "gcs"
)

const (
	StoreModeBlob   = "blob"
	StoreModeInline = "inline"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Storage    StorageConfig
	Uploads    UploadConfig
	Checklist  ChecklistConfig
	Completion CompletionConfig
	TimeLogs   TimeLogConfig
	Cleanup    CleanupConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects the blob backend and signed URL parameters.
type StorageConfig struct {
	Driver             string
	Dir                string
	GCSBucket          string
	GCSCredentialsFile string
	SignedURLSecret    string
	SignedURLTTL       time.Duration
	// PublicBaseURL prefixes local download links, e.g. https://api.example.com.
	PublicBaseURL string
}

// UploadConfig validates requirement and template uploads.
type UploadConfig struct {
	MaxFileSizeBytes     int64
	AllowedMIMEs         []string
	InlineThresholdBytes int64
	DefaultStoreMode     string
}

// ChecklistConfig tunes the reconciled checklist cache.
type ChecklistConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// CompletionConfig sizes the post-reconciliation worker pool.
type CompletionConfig struct {
	WorkerConcurrency int
	WorkerRetries     int
	SignatureURL      string
}

// TimeLogConfig holds OJT hour targets and export retention.
type TimeLogConfig struct {
	RequiredHours int
	ExportTTL     time.Duration
}

// CleanupConfig schedules periodic export cleanup.
type CleanupConfig struct {
	Enabled bool
	Spec    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Storage = StorageConfig{
		Driver:             strings.ToLower(v.GetString("STORAGE_DRIVER")),
		Dir:                v.GetString("STORAGE_DIR"),
		GCSBucket:          v.GetString("GCS_BUCKET"),
		GCSCredentialsFile: v.GetString("GCS_CREDENTIALS_FILE"),
		SignedURLSecret:    v.GetString("SIGNED_URL_SECRET"),
		SignedURLTTL:       parseDuration(v.GetString("SIGNED_URL_TTL"), time.Hour),
		PublicBaseURL:      strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	inlineThreshold := v.GetInt64("UPLOAD_INLINE_THRESHOLD")
	if inlineThreshold <= 0 {
		inlineThreshold = 700 * 1024
	}
	storeMode := strings.ToLower(v.GetString("UPLOAD_DEFAULT_STORE_MODE"))
	if storeMode != StoreModeInline {
		storeMode = StoreModeBlob
	}
	cfg.Uploads = UploadConfig{
		MaxFileSizeBytes:     maxUpload,
		AllowedMIMEs:         splitAndTrim(v.GetString("UPLOAD_ALLOWED_MIME_TYPES")),
		InlineThresholdBytes: inlineThreshold,
		DefaultStoreMode:     storeMode,
	}

	cfg.Checklist = ChecklistConfig{
		CacheEnabled: v.GetBool("ENABLE_CHECKLIST_CACHE"),
		CacheTTL:     parseDuration(v.GetString("CHECKLIST_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Completion = CompletionConfig{
		WorkerConcurrency: v.GetInt("COMPLETION_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("COMPLETION_WORKER_RETRIES"),
		SignatureURL:      v.GetString("COMPLETION_SIGNATURE_URL"),
	}

	cfg.TimeLogs = TimeLogConfig{
		RequiredHours: v.GetInt("OJT_REQUIRED_HOURS"),
		ExportTTL:     parseDuration(v.GetString("EXPORTS_TTL"), 24*time.Hour),
	}

	cfg.Cleanup = CleanupConfig{
		Enabled: v.GetBool("ENABLE_CLEANUP_CRON"),
		Spec:    v.GetString("CLEANUP_CRON"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "internquest")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "internquest-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_DIR", "./uploads")
	v.SetDefault("GCS_BUCKET", "")
	v.SetDefault("GCS_CREDENTIALS_FILE", "")
	v.SetDefault("SIGNED_URL_SECRET", "dev_files_secret")
	v.SetDefault("SIGNED_URL_TTL", "1h")
	v.SetDefault("PUBLIC_BASE_URL", "")

	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("UPLOAD_ALLOWED_MIME_TYPES", "application/pdf,image/jpeg,image/png,application/msword,application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	v.SetDefault("UPLOAD_INLINE_THRESHOLD", 700*1024)
	v.SetDefault("UPLOAD_DEFAULT_STORE_MODE", StoreModeBlob)

	v.SetDefault("ENABLE_CHECKLIST_CACHE", true)
	v.SetDefault("CHECKLIST_CACHE_TTL", "2m")

	v.SetDefault("COMPLETION_WORKER_CONCURRENCY", 1)
	v.SetDefault("COMPLETION_WORKER_RETRIES", 3)
	v.SetDefault("COMPLETION_SIGNATURE_URL", "")

	v.SetDefault("OJT_REQUIRED_HOURS", 486)
	v.SetDefault("EXPORTS_TTL", "24h")

	v.SetDefault("ENABLE_CLEANUP_CRON", true)
	v.SetDefault("CLEANUP_CRON", "@hourly")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
