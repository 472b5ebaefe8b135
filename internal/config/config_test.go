package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SERVICE_NAME", "PORT", "LOG_LEVEL", "LOG_FORMAT", "LTV_MAX_HORIZON", "HTTP_TIMEOUT_SECONDS",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "CHROME_PATH", "ANTHROPIC_API_KEY", "LTV_NO_LLM"} {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg := FromEnv()
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 1200, cfg.MaxHorizon)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.False(t, cfg.NoLLM)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LTV_MAX_HORIZON", "360")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "2.5")
	t.Setenv("ANTHROPIC_API_KEY", " sk-test ")
	t.Setenv("LTV_NO_LLM", "yes")
	cfg := FromEnv()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 360, cfg.MaxHorizon)
	assert.Equal(t, 2500*time.Millisecond, cfg.HTTPTimeout)
	assert.Equal(t, "sk-test", cfg.AnthropicAPIKey)
	assert.True(t, cfg.NoLLM)
}

func TestFromEnvIgnoresBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("LTV_MAX_HORIZON", "-4")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "soon")
	cfg := FromEnv()
	assert.Equal(t, DefaultMaxHorizon, cfg.MaxHorizon)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("PORT"))
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=7070\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Equal(t, "7070", Load().Port)
}

func TestEnvEnabled(t *testing.T) {
	for _, tc := range []struct {
		value string
		want  bool
	}{
		{value: "", want: false},
		{value: "0", want: false},
		{value: "false", want: false},
		{value: "1", want: true},
		{value: "TRUE", want: true},
		{value: "on", want: true},
	} {
		t.Setenv("X_FLAG", tc.value)
		if got := EnvEnabled("X_FLAG"); got != tc.want {
			t.Fatalf("EnvEnabled(%q) got %v, want %v", tc.value, got, tc.want)
		}
	}
}
