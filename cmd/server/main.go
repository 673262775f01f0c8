package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JonMunkholm/tableroute/internal/config"
	"github.com/JonMunkholm/tableroute/internal/core"
	"github.com/JonMunkholm/tableroute/internal/logging"
	"github.com/JonMunkholm/tableroute/internal/notify"
	"github.com/JonMunkholm/tableroute/internal/schema"
	"github.com/JonMunkholm/tableroute/internal/storage"
	"github.com/JonMunkholm/tableroute/internal/web"
	"github.com/joho/godotenv"
)

// openRetryInterval is how often a failed Open is retried in the background.
const openRetryInterval = 10 * time.Second

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// run serves until SIGINT or SIGTERM and returns once in-flight requests
// have drained, so deferred cleanup always runs.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	closeLogs := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.SeqURL)
	defer closeLogs()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store_driver", cfg.Store.Driver,
		"schema_file", cfg.Provider.SchemaFile,
		"strict_projection", cfg.Provider.StrictProjection,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	sch, err := schema.LoadFile(cfg.Provider.SchemaFile)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{
		Driver:          cfg.Store.Driver,
		DSN:             cfg.Store.DSN,
		MaxConns:        cfg.Store.MaxConns,
		MinConns:        cfg.Store.MinConns,
		MaxConnLifetime: cfg.Store.MaxConnLifetime,
		MaxConnIdleTime: cfg.Store.MaxConnIdleTime,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	providerName := cfg.Provider.Name
	if providerName == "" {
		providerName = sch.Provider
	}

	hub := notify.NewHub(cfg.Notify.Buffer, slog.Default())
	if cfg.Notify.LogChanges {
		hub.AddObserver(notify.NewLoggingObserver(slog.Default()))
	}

	provider, err := core.New(core.Options{
		ProviderName:      providerName,
		StoreName:         sch.Name,
		StoreVersion:      sch.Version,
		LenientProjection: !cfg.Provider.StrictProjection,
		Hub:               hub,
		Logger:            slog.Default(),
	}, store, sch.Tables...)
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	slog.Info("tables registered",
		"provider", providerName,
		"store", sch.Name,
		"version", sch.Version,
		"count", provider.Registry().TableCount(),
	)

	server := web.NewServer(provider, hub, cfg)

	// The server starts even when storage is not ready; /healthz reports 503
	// and Open is retried until it succeeds or shutdown begins.
	if !provider.Open(ctx) {
		slog.Warn("storage not ready, retrying in background", "error", provider.Err())
		go retryOpen(ctx, provider)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	<-serveErr

	published, dropped := hub.Stats()
	slog.Info("notifications", "published", published, "dropped", dropped)
	return nil
}

// retryOpen calls Open until storage is ready or ctx is done.
func retryOpen(ctx context.Context, p *core.Provider) {
	ticker := time.NewTicker(openRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.Open(ctx) {
				slog.Info("storage ready")
				return
			}
			slog.Warn("storage still not ready", "error", p.Err())
		}
	}
}
