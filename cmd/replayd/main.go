// Command replayd runs the hazard replay service: it ingests hazard event
// sequences from Kafka into the catalog, drives replay sessions through
// the animation engine, and serves the session REST API plus the
// websocket render stream.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/hazard-replay/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-replay/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-replay/internal/adapter/ws"
	"github.com/couchcryptid/hazard-replay/internal/catalog"
	"github.com/couchcryptid/hazard-replay/internal/config"
	"github.com/couchcryptid/hazard-replay/internal/observability"
	"github.com/couchcryptid/hazard-replay/internal/replay"
	"github.com/couchcryptid/hazard-replay/internal/scrub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	cat := catalog.New(cfg.CatalogSize, clock, logger, metrics)
	widget := scrub.NewWidget(clock, logger)
	hub := ws.NewHub(clock, logger, metrics)

	engine := replay.NewEngine(hub, widget, hub, clock, logger, metrics,
		replay.WithFrameCount(cfg.FrameCount))

	consumer := kafkaadapter.NewConsumer(cfg, cat, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, cat, consumer, hub.HandleWS,
		httpadapter.Defaults{PropagationSpeedKmH: cfg.PropagationSpeedKmH}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start event ingestion.
	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Error("kafka consumer error", "error", err)
		}
	}()

	// Start the scrub widget's autoplay loop.
	go widget.Run(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := consumer.Close(); err != nil {
		logger.Error("kafka consumer close error", "error", err)
	}
	hub.Close()

	logger.Info("shutdown complete")
}
