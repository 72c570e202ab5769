package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"calculator-api/internal/config"
	"calculator-api/internal/observability"
	"calculator-api/internal/server"
	"calculator-api/internal/store"
)

func main() {

	ctx := context.Background()

	// Config
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.Load(os.Getenv("CALC_CONFIG"))
	if err != nil {
		panic(err)
	}

	// Logger
	err = observability.InitLogger(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer observability.SyncLogger()

	// Telemetry
	shutdownTelemetry, err := initTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		observability.Logger.Fatal("telemetry init failed", zap.Error(err))
	}
	defer shutdownTelemetry(ctx)

	// Store
	db, err := store.Open(ctx, store.Options{
		Path:            cfg.Database.Path,
		LogLevel:        cfg.Database.LogLevel,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		JournalMode:     cfg.Database.JournalMode,
		BusyTimeoutMs:   cfg.Database.BusyTimeoutMs,
		Logger:          observability.Logger,
	})
	if err != nil {
		observability.Logger.Fatal("store open failed", zap.Error(err))
	}
	defer db.Close()

	// Router
	router := server.NewRouter(db)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", srv.Addr),
			zap.String("database", cfg.Database.Path),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Logger.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForShutdown(srv, cfg.Server.ShutdownTimeout)
}

func waitForShutdown(srv *http.Server, timeout time.Duration) {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		observability.Logger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	observability.Logger.Info("server stopped")
}
