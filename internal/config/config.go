package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rishi-o2/weather-app/internal/owm"
)

var ErrMissingAPIKey = errors.New("OPENWEATHER_API_KEY is not set (use WEATHER_APP_DEMO=true to run without one)")

type Config struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	Demo         bool          `mapstructure:"demo"`
	DiscardStale bool          `mapstructure:"discard_stale"`
	Timezone     string        `mapstructure:"timezone"`
	Glyphs       bool          `mapstructure:"glyphs"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFile      string        `mapstructure:"log_file"`
	StatusAddr   string        `mapstructure:"status_addr"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	OTLPEndpoint string        `mapstructure:"otlp_endpoint"`

	// Location is resolved from Timezone.
	Location *time.Location `mapstructure:"-"`
}

var envKeys = map[string]string{
	"api_key":       "OPENWEATHER_API_KEY",
	"base_url":      "OPENWEATHER_BASE_URL",
	"http_timeout":  "WEATHER_HTTP_TIMEOUT",
	"demo":          "WEATHER_APP_DEMO",
	"discard_stale": "WEATHER_DISCARD_STALE",
	"timezone":      "WEATHER_TZ",
	"glyphs":        "WEATHER_GLYPHS",
	"log_level":     "LOG_LEVEL",
	"log_file":      "LOG_FILE",
	"status_addr":   "WEATHER_STATUS_ADDR",
	"cors_origins":  "WEATHER_STATUS_CORS_ORIGINS",
	"otlp_endpoint": "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// Load reads .env (if present), the optional YAML file named by
// WEATHER_APP_CONFIG and the environment, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("base_url", owm.DefaultBaseURL)
	v.SetDefault("http_timeout", "0s")
	v.SetDefault("demo", false)
	v.SetDefault("discard_stale", true)
	v.SetDefault("glyphs", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "weather-app.log")
	v.SetDefault("cors_origins", []string{"*"})

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path := strings.TrimSpace(os.Getenv("WEATHER_APP_CONFIG")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// Comma-separated lists arrive from the environment as a single string.
	cfg.CORSOrigins = splitList(v.GetStringSlice("cors_origins"))

	// An explicitly empty LOG_FILE disables logging.
	if lf, ok := os.LookupEnv("LOG_FILE"); ok && strings.TrimSpace(lf) == "" {
		cfg.LogFile = ""
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = owm.DefaultBaseURL
	}
	if cfg.HTTPTimeout < 0 {
		return nil, fmt.Errorf("invalid WEATHER_HTTP_TIMEOUT %s", cfg.HTTPTimeout)
	}
	if cfg.APIKey == "" && !cfg.Demo {
		return nil, ErrMissingAPIKey
	}

	cfg.Location = time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid WEATHER_TZ %q: %w", tz, err)
		}
		cfg.Location = loc
	}
	return &cfg, nil
}

func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
