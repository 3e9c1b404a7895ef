// Command repairbot runs the device-repair intake Telegram bot: the webhook
// HTTP server, the public requests view, and the operator API.
//
// Configuration comes from the environment (optionally a .env file); see
// internal/config for the full list of variables.
//
// @title       Repair Bot Operator API
// @version     1.0
// @description Operator endpoints for listing, deleting and exporting repair requests.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	_ "github.com/tbourn/go-repair-bot/docs"
	"github.com/tbourn/go-repair-bot/internal/bot"
	"github.com/tbourn/go-repair-bot/internal/config"
	httpapi "github.com/tbourn/go-repair-bot/internal/http"
	"github.com/tbourn/go-repair-bot/internal/i18n"
	"github.com/tbourn/go-repair-bot/internal/observability"
	"github.com/tbourn/go-repair-bot/internal/repo"
	"github.com/tbourn/go-repair-bot/internal/services"
	"github.com/tbourn/go-repair-bot/internal/store"
	"github.com/tbourn/go-repair-bot/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine in production; the environment wins either way.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	for _, p := range []string{cfg.CSVPath, cfg.DBPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatal().Err(err).Str("dir", dir).Msg("cannot create data directory")
			}
		}
	}

	st, err := store.Open(cfg.CSVPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CSVPath).Msg("cannot open request store")
	}
	log.Info().Int("records", st.Count()).Str("path", cfg.CSVPath).Msg("request store loaded")

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("cannot open bookkeeping db")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram authorization failed")
	}
	log.Info().Str("bot", api.Self.UserName).Msg("authorized with telegram")

	defaultLang := language.Russian
	if cfg.Bot.DefaultLang == "en" {
		defaultLang = language.English
	}
	cat := i18n.New(defaultLang)

	notifier := bot.NewTelegramNotifier(api, cfg.Bot.OperatorID, cat, defaultLang)
	intake := services.NewIntakeService(st, notifier, cat)
	intake.SessionTTL = cfg.Bot.SessionTTL
	admin := &services.AdminService{Store: st, OperatorID: cfg.Bot.OperatorID}
	b := bot.New(api, intake, admin, cat, bot.Options{DB: db, UpdateTTL: cfg.Bot.UpdateTTL})

	engine := gin.New()
	httpapi.RegisterRoutes(engine, st, b, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Register the webhook after the server is up so Telegram's verification
	// request does not race the listener.
	if cfg.Bot.WebhookHost != "" {
		go func() {
			select {
			case <-time.After(cfg.Bot.StartupDelay):
			case <-ctx.Done():
				return
			}
			if err := bot.RegisterWebhook(api, cfg.Bot.WebhookHost, cfg.Bot.WebhookPath); err != nil {
				log.Error().Err(err).Msg("webhook registration failed")
			}
		}()
	} else {
		log.Warn().Msg("WEBHOOK_HOST not set; telegram will not deliver updates")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.Bot.WebhookHost != "" {
		if err := bot.DeleteWebhook(api); err != nil {
			log.Warn().Err(err).Msg("webhook removal failed")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("bye")
}
