package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lazyrecipes/internal/app"
	"lazyrecipes/internal/config"
	"lazyrecipes/internal/database"
	"lazyrecipes/internal/llm"
	"lazyrecipes/internal/metrics"
	"lazyrecipes/internal/server"
	"lazyrecipes/internal/snapshot"
	"lazyrecipes/internal/telegram"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	textGen, err := llm.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize model client")
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	keeper := snapshot.NewKeeper(snapshot.NewSQLiteStore(db.SQL), cfg.SnapshotMaxAge, cfg.SnapshotBuster)
	metricsStore := metrics.NewStore(db.SQL)

	application := app.NewApp(cfg, textGen, keeper, metricsStore)
	defer application.Close()

	if err := application.ReloadPromotions(); err != nil {
		log.Warn().Err(err).Msg("Starting without promotion catalog")
	}

	apiServer := server.New(cfg, application)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer.Handler())

	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBot(cfg, application)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
		}
		mux.HandleFunc("/webhook", bot.HandleWebhook)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		log.Info().Str("port", port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
