package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecomsvc/order-events/internal/customer"
	"github.com/ecomsvc/order-events/internal/events"
	journalsqlite "github.com/ecomsvc/order-events/internal/events/journal/sqlite"
	"github.com/ecomsvc/order-events/internal/httpx"
	"github.com/ecomsvc/order-events/internal/order"
	ordersqlite "github.com/ecomsvc/order-events/internal/order/sqlite"
	"github.com/ecomsvc/order-events/internal/pkg/config"
	"github.com/ecomsvc/order-events/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, "order-service")
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

	cfg := config.LoadOrderService()

	repo, err := ordersqlite.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open order store", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	// The journal shares the order database so one file holds the whole
	// service state.
	journalRepo, err := journalsqlite.NewWithDB(repo.DB())
	if err != nil {
		slog.Error("failed to initialise event journal", "error", err)
		os.Exit(1)
	}

	publisher := events.NewPublisher(cfg.Broker)
	defer publisher.Close()

	service := order.NewService(customer.NewClient(cfg.Customer), repo, publisher, journalRepo)
	router := httpx.NewRouter(httpx.NewHandler(service))

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		slog.Info("order service running", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
}
