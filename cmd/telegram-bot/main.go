package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"meal-calendar/internal/app"
	"meal-calendar/internal/calendar"
	"meal-calendar/internal/clipper"
	"meal-calendar/internal/config"
	"meal-calendar/internal/logging"
	"meal-calendar/internal/metrics"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/telegram"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load(os.Getenv("MEAL_CALENDAR_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Menu and recipe stores, local or through the API
	collectors := metrics.New()
	stores, err := app.OpenStores(cfg, logger, menu.WithRecorder(collectors))
	if err != nil {
		logger.Fatal("failed to open stores", zap.Error(err))
	}
	defer stores.Close()

	// 3. Recipe clipping and menu suggestions share the language model
	gen, closeGen, err := app.NewTextGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to create text generator", zap.Error(err))
	}
	defer closeGen()
	application := app.NewApp(nil, stores.Recipes, clipper.NewClipper(gen), logger)

	// 4. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, telegram.Deps{
		Loader:    calendar.NewLoader(stores.Menus, stores.Recipes, logger),
		Clipper:   application,
		Planner:   app.NewPlanner(stores, gen, logger),
		Logger:    logger,
		DataPaths: []string{cfg.DatabasePath, cfg.ImageDir},
	})
	if err != nil {
		logger.Fatal("failed to initialize telegram bot", zap.Error(err))
	}

	// 5. Start Server with Graceful Shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)
	mux.Handle("GET /metrics", collectors.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("telegram bot server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exiting")
}
