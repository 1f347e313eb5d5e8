package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanq16/expensesync/internal/storage"
)

var envKeys = []string{
	"API_BASE", "S3_BASE", "USE_MOCK", "LOG_LEVEL", "HTTP_TIMEOUT",
	"STORAGE_TYPE", "STORAGE_URL", "STORAGE_USER", "STORAGE_PASS", "STORAGE_SSL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"), "")
	require.NoError(t, err)

	assert.True(t, cfg.UseMock, "no API base selects mock mode")
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, "array", cfg.Envelope)
	assert.Equal(t, DefaultStorageBase, cfg.StorageBase)
	assert.Equal(t, storage.BackendTypeMemory, cfg.Storage.StorageType)
	assert.Equal(t, "disable", cfg.Storage.StorageSSL)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
apiBase: https://api.example.com/dev/
storageBase: https://bucket.example.com/receipts/
logLevel: debug
httpTimeout: 5s
listen: 127.0.0.1:9000
envelope: typed
storage:
  type: postgres
  url: localhost:5432/expenses
  user: app
  pass: secret
  ssl: require
`)

	cfg, err := Load("", path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/dev", cfg.APIBase)
	assert.False(t, cfg.UseMock)
	assert.Equal(t, "https://bucket.example.com/receipts", cfg.StorageBase)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, "typed", cfg.Envelope)
	assert.Equal(t, storage.SystemConfig{
		StorageURL:  "localhost:5432/expenses",
		StorageType: storage.BackendTypePostgres,
		StorageUser: "app",
		StoragePass: "secret",
		StorageSSL:  "require",
	}, cfg.Storage)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "apiBase: https://file.example.com\nlogLevel: warn\n")
	t.Setenv("API_BASE", "https://env.example.com")
	t.Setenv("USE_MOCK", "true")
	t.Setenv("HTTP_TIMEOUT", "750ms")

	cfg, err := Load("", path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.APIBase)
	assert.True(t, cfg.UseMock)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 750*time.Millisecond, cfg.HTTPTimeout)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("S3_BASE"))
	envFile := writeFile(t, ".env", "S3_BASE=https://dotenv.example.com\nAPI_BASE=https://dotenv-api.example.com\n")
	// already set (even empty) variables are not replaced by the file
	t.Setenv("API_BASE", "")

	cfg, err := Load(envFile, "")
	require.NoError(t, err)

	assert.Equal(t, "https://dotenv.example.com", cfg.StorageBase)
	assert.Empty(t, cfg.APIBase)
	assert.True(t, cfg.UseMock)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{name: "bad mock flag", env: map[string]string{"USE_MOCK": "maybe"}},
		{name: "bad timeout", env: map[string]string{"HTTP_TIMEOUT": "soon"}},
		{name: "bad storage type", env: map[string]string{"STORAGE_TYPE": "sqlite"}},
		{name: "bad envelope", yaml: "envelope: xml\n"},
		{name: "relative storage base", env: map[string]string{"S3_BASE": "/receipts"}},
		{name: "storage base without host", yaml: "storageBase: \"https://\"\n"},
		{name: "bad yaml", yaml: "apiBase: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "config.yaml", tt.yaml)
			}
			_, err := Load("", path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := Load("", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}
