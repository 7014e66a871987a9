package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "docchat", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 16, cfg.Relay.BufferSize)
	assert.Equal(t, int64(20<<20), cfg.Upload.MaxBytes)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[llm]
model = "gpt-4o-mini"
api_key = "from-file"

[database]
driver = "sqlite"
sqlite_path = "file.db"

[relay]
buffer_size = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LLM_API_KEY", "from-env")
	t.Setenv("RELAY_TURN_TIMEOUT_SECONDS", "30")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("APP_CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file.db", cfg.Database.SQLitePath)
	assert.Equal(t, 4, cfg.Relay.BufferSize)
	assert.Equal(t, 30, cfg.Relay.TurnTimeoutSeconds)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.CORSOrigins)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[app\nport = "), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	assert.ErrorIs(t, cfg.Validate(), ErrLLMCredentials)

	cfg.LLM.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.User = "app"
	cfg.Database.Password = "secret"

	assert.Equal(t, "app:secret@tcp(127.0.0.1:3306)/docchat?parseTime=true&loc=Local&charset=utf8mb4", cfg.MySQLDSN())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT_VAR", "123")
	assert.Equal(t, 123, getEnvAsInt("TEST_INT_VAR", 0))

	t.Setenv("TEST_INT_VAR", "invalid")
	assert.Equal(t, 10, getEnvAsInt("TEST_INT_VAR", 10))

	t.Setenv("TEST_BOOL_VAR", "invalid")
	assert.True(t, getEnvAsBool("TEST_BOOL_VAR", true))

	t.Setenv("TEST_FLOAT_VAR", "0.5")
	assert.InDelta(t, 0.5, getEnvAsFloat("TEST_FLOAT_VAR", 0), 1e-9)

	assert.Equal(t, "default", getEnv("DOCCHAT_NON_EXISTENT", "default"))
}
