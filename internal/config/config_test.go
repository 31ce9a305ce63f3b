package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "30")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("INDEX_BACKEND", "postgres")
	t.Setenv("UPLOAD_MAX_BYTES", "1024")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 30, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, IndexPostgres, cfg.Index.Backend)
	assert.Equal(t, int64(1024), cfg.Upload.MaxBytes)
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"STORAGE_BACKEND", "INDEX_BACKEND", "UPLOAD_DIR", "SEARCH_DEFAULT_LIMIT", "INGEST_WORKERS", "DB_APPLICATION_NAME"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, StorageLocal, cfg.Storage.Backend)
	assert.Equal(t, "uploads", cfg.Storage.LocalDir)
	assert.Equal(t, IndexBleve, cfg.Index.Backend)
	assert.Equal(t, 10, cfg.Index.DefaultLimit)
	assert.Equal(t, 4, cfg.Upload.Workers)
	assert.Equal(t, "docsearch", cfg.Database.AppName)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *AppConfig) {}},
		{name: "minio storage", mutate: func(c *AppConfig) { c.Storage.Backend = StorageMinIO }},
		{name: "unknown storage", mutate: func(c *AppConfig) { c.Storage.Backend = "ftp" }, wantErr: true},
		{name: "unknown index", mutate: func(c *AppConfig) { c.Index.Backend = "solr" }, wantErr: true},
		{name: "local without dir", mutate: func(c *AppConfig) { c.Storage.LocalDir = "" }, wantErr: true},
		{name: "zero workers", mutate: func(c *AppConfig) { c.Upload.Workers = 0 }, wantErr: true},
		{name: "limit above max", mutate: func(c *AppConfig) { c.Index.DefaultLimit = 500 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &AppConfig{
				Upload:  UploadConfig{Workers: 4},
				Storage: StorageConfig{Backend: StorageLocal, LocalDir: "uploads"},
				Index:   IndexConfig{Backend: IndexBleve, DefaultLimit: 10, MaxLimit: 100},
			}
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvInt64(t *testing.T) {
	key := "TEST_INT64_VAR"

	os.Setenv(key, "52428800")
	assert.Equal(t, int64(52428800), getEnvInt64(key, 0))

	os.Setenv(key, "1.5")
	assert.Equal(t, int64(7), getEnvInt64(key, 7))

	os.Unsetenv(key)
}
