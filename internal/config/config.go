package config

import (
	"fmt"
	"os"
	"strconv"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageMinIO = "minio"
)

// Index backends.
const (
	IndexBleve    = "bleve"
	IndexPostgres = "postgres"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	AppName            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects where uploaded bytes are persisted.
type StorageConfig struct {
	Backend  string
	LocalDir string
}

// IndexConfig selects the full-text index backend.
type IndexConfig struct {
	Backend      string
	BlevePath    string
	DefaultLimit int
	MaxLimit     int
}

// UploadConfig bounds request bodies and ingestion parallelism.
type UploadConfig struct {
	MaxBytes int64
	Workers  int
	TempDir  string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost          string
	Port             string
	Timezone         string
	LogLevel         string
	CORSAllowOrigins string
	Upload           UploadConfig
	Storage          StorageConfig
	Index            IndexConfig
	Database         DatabaseConfig
	MinIO            MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:          getEnv("APP_HOST", "localhost:8001"),
		Port:             getEnv("PORT", "8001"),
		Timezone:         getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		Upload: UploadConfig{
			MaxBytes: getEnvInt64("UPLOAD_MAX_BYTES", 50<<20),
			Workers:  getEnvInt("INGEST_WORKERS", 4),
			TempDir:  getEnv("UPLOAD_TEMP_DIR", ""),
		},
		Storage: StorageConfig{
			Backend:  getEnv("STORAGE_BACKEND", StorageLocal),
			LocalDir: getEnv("UPLOAD_DIR", "uploads"),
		},
		Index: IndexConfig{
			Backend:      getEnv("INDEX_BACKEND", IndexBleve),
			BlevePath:    getEnv("BLEVE_PATH", "data/documents.bleve"),
			DefaultLimit: getEnvInt("SEARCH_DEFAULT_LIMIT", 10),
			MaxLimit:     getEnvInt("SEARCH_MAX_LIMIT", 100),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			AppName:            getEnv("DB_APPLICATION_NAME", "docsearch"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

// Validate rejects backend selections the application cannot build.
func (c *AppConfig) Validate() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for the local storage backend")
		}
	case StorageMinIO:
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}

	switch c.Index.Backend {
	case IndexBleve, IndexPostgres:
	default:
		return fmt.Errorf("unsupported INDEX_BACKEND %q", c.Index.Backend)
	}

	if c.Upload.Workers <= 0 {
		return fmt.Errorf("INGEST_WORKERS must be positive")
	}
	if c.Index.DefaultLimit <= 0 || c.Index.MaxLimit < c.Index.DefaultLimit {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT must be positive and not exceed SEARCH_MAX_LIMIT")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
