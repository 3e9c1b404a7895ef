package config

import (
	"strings"
	"testing"
	"time"
)

// setToken satisfies the only required variable so Load can succeed.
func setToken(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
}

func TestLoad_Defaults(t *testing.T) {
	setToken(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q", cfg.GinMode)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.Bot.WebhookPath != "/webhook" {
		t.Errorf("WebhookPath = %q", cfg.Bot.WebhookPath)
	}
	if cfg.Bot.UpdateTTL != 24*time.Hour {
		t.Errorf("UpdateTTL = %v", cfg.Bot.UpdateTTL)
	}
	if cfg.Bot.SessionTTL != 0 {
		t.Errorf("SessionTTL = %v, want disabled by default", cfg.Bot.SessionTTL)
	}
	if cfg.Bot.DefaultLang != "ru" {
		t.Errorf("DefaultLang = %q", cfg.Bot.DefaultLang)
	}
	if cfg.CSVPath != "data/repair_requests.csv" {
		t.Errorf("CSVPath = %q", cfg.CSVPath)
	}
	if cfg.OperatorToken != "" {
		t.Errorf("OperatorToken should default to empty (API disabled)")
	}
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "BOT_TOKEN") {
		t.Fatalf("expected BOT_TOKEN error, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setToken(t)
	t.Setenv("OPERATOR_ID", "424242")
	t.Setenv("WEBHOOK_HOST", "bot.example.com")
	t.Setenv("WEBHOOK_PATH", "hook/") // missing slash, trailing slash
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("DEFAULT_LANG", "EN")
	t.Setenv("RATE_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bot.OperatorID != 424242 {
		t.Errorf("OperatorID = %d", cfg.Bot.OperatorID)
	}
	if cfg.Bot.WebhookPath != "/hook" {
		t.Errorf("WebhookPath = %q", cfg.Bot.WebhookPath)
	}
	if cfg.Bot.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.Bot.SessionTTL)
	}
	if cfg.Bot.DefaultLang != "en" {
		t.Errorf("DefaultLang = %q", cfg.Bot.DefaultLang)
	}
	if cfg.RateRPS != 2.5 {
		t.Errorf("RateRPS = %v", cfg.RateRPS)
	}
	if got := cfg.CORS.AllowedOrigins; len(got) != 2 || got[0] != "https://a.example" {
		t.Errorf("AllowedOrigins = %v", got)
	}
}

func TestLoad_InvalidValuesFallBackOrFail(t *testing.T) {
	setToken(t)
	t.Setenv("GIN_MODE", "bogus")
	t.Setenv("DEFAULT_LANG", "de")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want normalized release", cfg.GinMode)
	}
	if cfg.Bot.DefaultLang != "ru" {
		t.Errorf("DefaultLang = %q, want normalized ru", cfg.Bot.DefaultLang)
	}

	t.Setenv("LOG_LEVEL", "chatty")
	if _, err := Load(); err == nil {
		t.Fatal("expected LOG_LEVEL validation error")
	}
}

func TestLoad_UpdateTTLMustBePositive(t *testing.T) {
	setToken(t)
	t.Setenv("UPDATE_TTL", "-1h")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "UPDATE_TTL") {
		t.Fatalf("expected UPDATE_TTL error, got %v", err)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/":        "/",
		"api":      "/api",
		"/api/":    "/api",
		"/api/v1/": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
