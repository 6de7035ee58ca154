package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecomsvc/order-events/internal/pkg/config"
	"github.com/ecomsvc/order-events/internal/pkg/telemetry"
	"github.com/ecomsvc/order-events/internal/projector"
	"github.com/ecomsvc/order-events/internal/projector/redisstore"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, "projector")
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	cfg := config.LoadProjector()

	store := redisstore.New(cfg.RedisAddr)
	defer store.Close()

	consumer := projector.NewConsumer(cfg, projector.NewHandler(store))
	if err := consumer.Run(ctx); err != nil {
		slog.Error("projector stopped", "error", err)
		os.Exit(1)
	}
}
