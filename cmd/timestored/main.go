// Command timestored serves an expiring key value store over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ddirect/timestore/internal/api"
	"github.com/ddirect/timestore/internal/config"
	"github.com/ddirect/timestore/metrics"
	"github.com/ddirect/timestore/notify"
	"github.com/ddirect/timestore/ttlmap"
)

const storeName = "default"

func main() {
	configPath := flag.String("config", "timestored.yaml", "path to config file")
	flag.Parse()

	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Level())
	slog.Info("timestored starting",
		"config", *configPath,
		"listen", cfg.Listen,
		"default_ttl", cfg.Store.DefaultTTL,
		"expire_on_shutdown", cfg.Store.ExpireOnShutdown,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var values *ttlmap.Map[string, []byte]
	collector := metrics.New[string](storeName, func() int { return values.Len() })
	values = ttlmap.New[string, []byte](ttlmap.Options[string]{
		TTL:              cfg.Store.DefaultTTL,
		ExpireOnShutdown: cfg.Store.ExpireOnShutdown,
		Events: notify.Multi[string]{
			collector,
			notify.Logger[string]{Log: slog.Default(), Name: storeName},
		},
	})

	server := api.NewServer(values, limits(cfg), metrics.Handler(collector))

	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			level.Set(updated.Level())
			server.SetLimits(limits(updated))
			if updated.Store.DefaultTTL != values.TTL() || updated.Listen != cfg.Listen {
				slog.Warn("listen and store.default_ttl changes apply after a restart")
			}
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("http: listening", "addr", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http: server failed", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("timestored shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http: shutdown failed", "err", err)
	}
	values.Shutdown()
	slog.Info("timestored stopped", "expired", collector.Expired(), "renewed", collector.Renewed())
}

func limits(cfg *config.Config) api.Limits {
	return api.Limits{
		MaxTTL:        cfg.Store.MaxTTL,
		MaxValueBytes: cfg.Store.MaxValueBytes,
	}
}
