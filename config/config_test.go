package config_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefit-engine/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	// GIVEN: A config file referencing an environment variable
	// WHEN: Loading over the defaults
	// THEN: The variable is expanded and unspecified fields keep their defaults
	t.Setenv("BENEFIT_TEST_KEY", "sk-test")
	path := writeConfig(t, `
app:
  log_level: debug
  http:
    port: 9090
extraction:
  api_key: ${BENEFIT_TEST_KEY}
`)

	cfg := config.NewDefaultConfig()
	require.NoError(t, config.Load(path, cfg))

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9090", cfg.App.HTTP.Address())
	assert.Equal(t, "sk-test", cfg.Extraction.APIKey)
	assert.True(t, cfg.Extraction.Enabled())
	assert.Equal(t, "./benefit-engine.db", cfg.SQLite.Path)
	assert.Equal(t, int64(10<<20), cfg.App.HTTP.MaxUploadBytes())
	assert.Equal(t, 15*time.Minute, cfg.SQLite.RefreshInterval())
}

func TestLoad_ValidationFails(t *testing.T) {
	cases := map[string]string{
		"port":      "app:\n  http:\n    port: 70000\n",
		"log level": "app:\n  log_level: loud\n",
		"sqlite":    "sqlite:\n  path: \"\"\n",
		"refresh":   "sqlite:\n  refresh_minutes: -1\n",
		"endpoint":  "extraction:\n  endpoint: not a url\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			err := config.Load(writeConfig(t, body), cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg := config.NewDefaultConfig()
	err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), cfg)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadOrDefault_MissingFileKeepsDefaults(t *testing.T) {
	cfg := config.NewDefaultConfig()
	require.NoError(t, config.LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"), cfg))
	assert.Equal(t, 8080, cfg.App.HTTP.Port)
	assert.False(t, cfg.Extraction.Enabled())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := config.NewLogger("warn", &buf)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	config.LogError(logger, "api", "handleAssess", errors.New("boom"), logrus.Fields{"fingerprint": "abc"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "boom", line["msg"])
	assert.Equal(t, "api", line["module"])
	assert.Equal(t, "abc", line["fingerprint"])
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	logger := config.NewLogger("loud", &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestLoad_ShippedConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := config.NewDefaultConfig()
	require.NoError(t, config.Load("config.yaml", cfg))

	defaults := config.NewDefaultConfig()
	assert.Equal(t, defaults.App, cfg.App)
	assert.Equal(t, defaults.SQLite, cfg.SQLite)
	assert.False(t, cfg.Extraction.Enabled())
}
