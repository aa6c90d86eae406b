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

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/revledger/internal/api"
	"github.com/mmynk/revledger/internal/config"
	"github.com/mmynk/revledger/internal/notify"
	"github.com/mmynk/revledger/internal/service"
	"github.com/mmynk/revledger/internal/storage/sqlite"
	"github.com/mmynk/revledger/pkg/logging"
)

func main() {
	logging.Setup()

	cfg := config.Load()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.WebhookURL)
		slog.Info("Webhook notifications enabled", "url", cfg.WebhookURL)
	}

	ledger := service.NewLedgerService(store)
	validator := service.NewSettlementValidator(store)
	settlement := service.NewSettlementService(store, ledger, notifier)

	handler := api.NewRouter(
		api.NewHandlers(store, ledger, validator, settlement, cfg.ReminderThreshold),
		cfg.AllowedOrigins,
	)

	// h2c allows HTTP/2 without TLS for internal clients sitting behind
	// a terminating proxy.
	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}

	go func() {
		slog.Info("Server starting", "address", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
