package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.ShutdownSecs)
	assert.Equal(t, "https://login.salesforce.com", cfg.CRM.LoginURL)
	assert.InDelta(t, 5.0, cfg.CRM.RateLimitRPS, 0.001)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.AI.Model)
	assert.Equal(t, int64(2048), cfg.AI.MaxTokens)
	assert.Equal(t, 30, cfg.AI.TimeoutSecs)
	assert.Equal(t, 10, cfg.Storage.TimeoutSecs)
	assert.Equal(t, "https://api.sendgrid.com", cfg.Mail.BaseURL)
	assert.False(t, cfg.Identity.FoldDots)
	assert.Equal(t, 7, cfg.Report.FreshnessDays)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
identity:
  fold_dots: true
report:
  freshness_days: 14
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Identity.FoldDots)
	assert.Equal(t, 14, cfg.Report.FreshnessDays)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}

	assert.Error(t, cfg.Validate("crm"))
	assert.Error(t, cfg.Validate("ai"))
	assert.Error(t, cfg.Validate("storage"))
	assert.NoError(t, cfg.Validate("unknown"))

	cfg.CRM = CRMConfig{ClientID: "id", Username: "u@example.com", KeyPath: "/tmp/key.pem"}
	cfg.AI = AIConfig{Key: "sk-test"}
	cfg.Storage = StorageConfig{Bucket: "reports"}

	assert.NoError(t, cfg.Validate("crm"))
	assert.NoError(t, cfg.Validate("ai"))
	assert.NoError(t, cfg.Validate("storage"))
}

func TestInitLogger(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())

	err = InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	assert.Error(t, err)
}
