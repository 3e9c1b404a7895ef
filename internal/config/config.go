// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes bot credentials,
// storage paths, server timeouts, logging, rate limiting, and observability
// settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-repair-bot/internal/sysutil"
)

// BotConfig defines Telegram-specific settings.
type BotConfig struct {
	Token        string        // BOT_TOKEN (required)
	OperatorID   int64         // OPERATOR_ID: Telegram user id allowed to run admin commands; 0 disables them
	WebhookHost  string        // WEBHOOK_HOST: public HTTPS host (e.g. "bot.example.com")
	WebhookPath  string        // WEBHOOK_PATH: local path Telegram posts to
	StartupDelay time.Duration // WEBHOOK_STARTUP_DELAY: wait before registering the webhook
	SessionTTL   time.Duration // SESSION_TTL: idle intake sessions expire after this; 0 keeps them forever
	UpdateTTL    time.Duration // UPDATE_TTL: how long processed update ids are remembered
	DefaultLang  string        // DEFAULT_LANG: "ru" or "en"
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-repair-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for the operator API routes

	// App
	Bot           BotConfig
	CSVPath       string // CSV_PATH: append-only requests file
	DBPath        string // DB_PATH: SQLite bookkeeping database
	OperatorToken string // OPERATOR_TOKEN: shared secret for the HTTP operator API; empty disables it

	// Rate limiting (operator API and requests view only)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		Bot: BotConfig{
			Token:        getenv("BOT_TOKEN", ""),
			OperatorID:   getint64("OPERATOR_ID", 0),
			WebhookHost:  getenv("WEBHOOK_HOST", ""),
			WebhookPath:  normalizeBasePath(getenv("WEBHOOK_PATH", "/webhook")),
			StartupDelay: getdur("WEBHOOK_STARTUP_DELAY", 2*time.Second),
			SessionTTL:   getdur("SESSION_TTL", 0),
			UpdateTTL:    getdur("UPDATE_TTL", 24*time.Hour),
			DefaultLang:  strings.ToLower(getenv("DEFAULT_LANG", "ru")),
		},
		CSVPath:       getenv("CSV_PATH", "data/repair_requests.csv"),
		DBPath:        getenv("DB_PATH", "data/bot.db"),
		OperatorToken: getenv("OPERATOR_TOKEN", ""),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-repair-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	switch cfg.Bot.DefaultLang {
	case "ru", "en":
	default:
		cfg.Bot.DefaultLang = "ru"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.Bot.Token) == "" {
		return cfg, errors.New("BOT_TOKEN must not be empty")
	}
	if cfg.Bot.OperatorID < 0 {
		return cfg, errors.New("OPERATOR_ID must be >= 0")
	}
	if cfg.Bot.StartupDelay < 0 {
		return cfg, errors.New("WEBHOOK_STARTUP_DELAY must be >= 0")
	}
	if cfg.Bot.SessionTTL < 0 {
		return cfg, errors.New("SESSION_TTL must be >= 0")
	}
	if cfg.Bot.UpdateTTL <= 0 {
		return cfg, errors.New("UPDATE_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.CSVPath) == "" {
		return cfg, errors.New("CSV_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		if sysutil.IsFalsy(v) {
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
