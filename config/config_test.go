package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the duration of the test. cleanenv treats an
// empty but present variable as an override, so t.Setenv(k, "") is not enough.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

var configKeys = []string{
	"SENSI_CONFIG_PATH", "PORT", "DB_DRIVER", "DATABASE_URL", "UPLOAD_DIR", "UPLOAD_MAX_BYTES",
	"ADMIN_TOKEN", "GOOGLE_API_KEY", "GOOGLE_CSE_ID", "SEARCH_TIMEOUT",
	"GENAI_PROVIDER", "GENAI_API_KEY", "GENAI_MODEL", "GENAI_TIMEOUT",
	"SENDGRID_API_KEY", "MAIL_FROM", "ADMIN_EMAIL", "SLACK_WEBHOOK_URL", "REQUIRE_PREMIUM", "METRICS_ENABLED", "NOTIFY_ENABLED",
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, configKeys...)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, int64(6<<20), cfg.Uploads.MaxBytes)
	assert.Equal(t, 8*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 30*time.Second, cfg.GenAI.Timeout)
	assert.False(t, cfg.Features.RequirePremium)
	assert.True(t, cfg.Features.MetricsEnabled)
	assert.False(t, cfg.SearchEnabled())
	assert.False(t, cfg.GenAIEnabled())
	assert.False(t, cfg.MailEnabled())
	assert.False(t, cfg.SlackEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	unsetEnv(t, configKeys...)
	t.Setenv("ADMIN_TOKEN", "s3cret")
	t.Setenv("GENAI_PROVIDER", "gemini")
	t.Setenv("GENAI_API_KEY", "key")
	t.Setenv("GENAI_TIMEOUT", "5s")
	t.Setenv("REQUIRE_PREMIUM", "true")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.example/x")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Admin.Token)
	assert.True(t, cfg.SlackEnabled())
	assert.True(t, cfg.GenAIEnabled())
	assert.Equal(t, 5*time.Second, cfg.GenAI.Timeout)
	assert.True(t, cfg.Features.RequirePremium)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "port: \"9090\"\nadmin:\n  token: from-file\nsearch:\n  api_key: k\n  engine_id: cx\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	unsetEnv(t, configKeys...)
	t.Setenv("SENSI_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "from-file", cfg.Admin.Token)
	assert.True(t, cfg.SearchEnabled())
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("SENSI_CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
