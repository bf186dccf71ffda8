package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jokefeed/internal/analytics"
	"jokefeed/internal/backend"
	"jokefeed/internal/bot"
	"jokefeed/internal/config"
	"jokefeed/internal/feed"
	"jokefeed/internal/identity"
	"jokefeed/internal/ledger"
	"jokefeed/internal/prefs"
	"jokefeed/internal/remoteconfig"
	"jokefeed/internal/usage"
	"jokefeed/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrEmptyBotToken) {
			fmt.Fprintln(os.Stderr, "Error: BOT_TOKEN environment variable is required")
		} else if errors.Is(err, config.ErrEmptyOwnerID) {
			fmt.Fprintln(os.Stderr, "Error: BOT_OWNER_ID environment variable is required")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		}
		os.Exit(1)
	}

	logger.Init(cfg.App.LogLevel, nil)
	logger.Info("Starting jokefeed",
		logger.String("app", cfg.App.Name),
		logger.String("environment", cfg.App.Environment),
		logger.Bool("debug", cfg.App.IsDebug()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		if errors.Is(err, ledger.ErrSchemaTooNew) {
			logger.Error("Ledger database was written by a newer build; refusing to touch it",
				logger.String("path", cfg.Ledger.Path),
			)
		} else {
			logger.Error("Failed to open ledger", logger.Err(err))
		}
		os.Exit(1)
	}
	defer db.Close()

	store, err := ledger.NewStore(db)
	if err != nil {
		logger.Error("Failed to create ledger store", logger.Err(err))
		os.Exit(1)
	}
	logger.Info("Ledger opened", logger.String("path", cfg.Ledger.Path))

	prefStore, err := prefs.Open(cfg.Prefs.Path)
	if err != nil {
		logger.Error("Failed to open prefs store", logger.Err(err))
		os.Exit(1)
	}

	rc, err := remoteconfig.NewReader(remoteconfig.AllParams)
	if err != nil {
		// Descriptor defects are code bugs; this is the one failure the
		// core refuses to degrade through.
		logger.Error("Remote param validation failed", logger.Err(err))
		os.Exit(1)
	}

	fetchCtx, fetchCancel := context.WithTimeout(ctx, cfg.RemoteConfig.FetchTimeout)
	rc.Init(fetchCtx, remoteconfig.NewHTTPFetcher(cfg.RemoteConfig))
	fetchCancel()

	var sink analytics.Sink = analytics.Noop{}
	var nc *analytics.NATS
	if cfg.NATS.Enabled {
		nc, err = analytics.New(cfg.NATS)
		if err != nil {
			logger.Warn("Failed to connect to NATS, analytics disabled", logger.Err(err))
		} else {
			defer nc.Close()
			sink = nc
			logger.Info("Connected to NATS", logger.String("url", cfg.NATS.URL))
		}
	}

	id := identity.New(cfg.Bot, prefStore)

	var usageBackend usage.Backend
	if cfg.Sync.Enabled {
		usageBackend = backend.NewUsageClient(cfg.Sync)
	}

	coord := usage.NewCoordinator(prefStore, store, usageBackend, sink, id, cfg.App.IsDebug())

	feedClient := feed.New(cfg.Feed)

	telegramBot, err := bot.New(cfg.Bot, coord, feedClient, store, prefStore, rc)
	if err != nil {
		logger.Error("Failed to create bot", logger.Err(err))
		os.Exit(1)
	}

	gate := usage.NewGate(prefStore, rc, id, telegramBot, sink)
	telegramBot.AttachGate(gate)

	tbot, err := telegramBot.Start()
	if err != nil {
		logger.Error("Failed to start bot", logger.Err(err))
		os.Exit(1)
	}
	logger.Info("Telegram bot started")

	healthMux := http.NewServeMux()
	healthMux.HandleFunc(cfg.Health.Endpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: healthMux,
	}

	go func() {
		logger.Info("Health server starting",
			logger.Int("port", cfg.Health.Port),
		)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server error", logger.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	tbot.Stop()

	// Let in-flight ledger writes and snapshot pushes finish.
	coord.Drain()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", logger.Err(err))
	}

	logger.Info("Stopped gracefully")
}
