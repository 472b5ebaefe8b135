package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort        = "8080"
	DefaultMaxHorizon  = 1200
	DefaultHTTPTimeout = 30 * time.Second
	DefaultServiceName = "cohort-ltv"
)

// Config holds runtime settings shared by the binaries.
type Config struct {
	ServiceName string
	Port        string
	LogLevel    string
	LogFormat   string

	// MaxHorizon caps the number of periods a request may ask for.
	MaxHorizon  int
	HTTPTimeout time.Duration

	OTLPEndpoint string
	ChromePath   string

	AnthropicAPIKey string
	NoLLM           bool
}

// Load reads a .env file when present, then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		ServiceName:     getenv("SERVICE_NAME", DefaultServiceName),
		Port:            getenv("PORT", DefaultPort),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getenv("LOG_FORMAT", "json")),
		MaxHorizon:      getenvInt("LTV_MAX_HORIZON", DefaultMaxHorizon),
		HTTPTimeout:     getenvSeconds("HTTP_TIMEOUT_SECONDS", DefaultHTTPTimeout),
		OTLPEndpoint:    strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		ChromePath:      strings.TrimSpace(os.Getenv("CHROME_PATH")),
		AnthropicAPIKey: strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		NoLLM:           EnvEnabled("LTV_NO_LLM"),
	}
}

// EnvEnabled reports whether the variable holds a truthy value such as
// "1", "true", "yes" or "on".
func EnvEnabled(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(getenv(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getenvSeconds(key string, def time.Duration) time.Duration {
	v, err := strconv.ParseFloat(getenv(key, ""), 64)
	if err != nil || v <= 0 {
		return def
	}
	return time.Duration(v * float64(time.Second))
}
