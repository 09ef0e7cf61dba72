package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realestatesync/adapters"
	"realestatesync/adapters/browserpost"
	"realestatesync/adapters/extension"
	"realestatesync/adapters/reststub"
	"realestatesync/adapters/social"
	"realestatesync/adapters/wordpress"
	"realestatesync/config"
	"realestatesync/importer"
	"realestatesync/orchestrator"
	"realestatesync/registry"
	"realestatesync/relay"
	"realestatesync/server"
	"realestatesync/settings"
	"realestatesync/storage"
	"realestatesync/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== RealEstateSync starting ===")
	logger.Info("Config — port: %s | memory store: %t | local relay: %t | retries: %d",
		cfg.HTTPPort, cfg.MemoryStore, cfg.RelayLocal, cfg.MaxRetries)

	// Stores. The in-memory pair backs local development and tests; the
	// Postgres pair shares one connection pool.
	var propertyStore storage.PropertyStore
	var settingsStore settings.Store
	if cfg.MemoryStore {
		propertyStore = storage.NewMemoryStore()
		settingsStore = settings.NewMemoryStore()
	} else {
		db, err := storage.Open(cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Make sure Docker is running: docker compose up -d")
			os.Exit(1)
		}
		defer db.Close()

		ps, err := storage.NewPostgresStore(db)
		if err != nil {
			logger.Error("Failed to migrate properties schema: %v", err)
			os.Exit(1)
		}
		ss, err := settings.NewPostgresStore(db)
		if err != nil {
			logger.Error("Failed to migrate settings schema: %v", err)
			os.Exit(1)
		}
		propertyStore = ps
		settingsStore = ss
	}

	resolver := settings.NewResolver(settingsStore, logger)

	httpTimeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	elementWait := time.Duration(cfg.ElementWaitSec) * time.Second
	ackTimeout := time.Duration(cfg.RelayAckSec) * time.Second

	publishers := map[registry.Family]adapters.Publisher{
		registry.FamilyREST:      reststub.New(logger, httpTimeout, cfg.MaxRetries),
		registry.FamilyWordPress: wordpress.New(logger, httpTimeout),
		registry.FamilySocial:    social.New(logger, cfg.GraphAPIBase, httpTimeout, cfg.MaxUploadWorkers, cfg.UploadRateMs),
		registry.FamilyBrowser:   browserpost.New(logger, cfg.ChromeBin, elementWait),
	}

	// Extension channel: a WebSocket hub the real extension connects to,
	// or an in-process loopback coordinator in local relay mode.
	var extRelay extension.Relay
	var socket server.ExtensionSocket
	var updates <-chan relay.StatusUpdate
	if cfg.RelayLocal {
		tabs := relay.NewHTTPTabs(logger, adapters.NewHTTPClient(httpTimeout))
		loopback := relay.NewLoopback(relay.NewCoordinator(logger, tabs))
		extRelay = loopback
		updates = loopback.Updates()
		logger.Info("Local relay mode: extension postings are simulated")
	} else {
		hub := relay.NewHub(logger, ackTimeout)
		subCh, cancel := hub.Subscribe()
		defer cancel()
		extRelay = hub
		socket = hub
		updates = subCh
	}

	ext := extension.New(logger, extRelay, ackTimeout)
	orch := orchestrator.New(logger, propertyStore, resolver, publishers, ext)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go orch.ConsumeStatusUpdates(ctx, updates)

	scraperConfigs := importer.NewConfigStore()
	imp := importer.New(logger, scraperConfigs, httpTimeout)

	handlers := server.NewHandlers(logger, propertyStore, settingsStore, orch, imp, scraperConfigs, extRelay)
	srv := server.NewServer(cfg.HTTPPort, cfg.JWTSecret, cfg.AllowedOrigins, handlers, socket, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed: %v", err)
		}
	}

	logger.Info("=== RealEstateSync stopped ===")
}
