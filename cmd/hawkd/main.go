// Command hawkd serves the Hawk dashboard API.
//
// @title Hawk API
// @version 1.0
// @description Vulnerability monitoring dashboard API
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hawksec/hawk/internal/api/router"
	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/config"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
		Service:    "hawkd",
	})

	if err := run(cfg, log); err != nil {
		log.ErrorWithErr(err, "Server stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer a.Close()

	if cfg.Scan.AutoScanEnabled {
		scanner, err := worker.NewAutoScanner(worker.Sessions(a), cfg.Scan.AutoScanSchedule, log)
		if err != nil {
			return err
		}
		if err := scanner.Start(ctx); err != nil {
			return err
		}
		defer scanner.Stop()
	}

	h := router.NewHandlers(a, log)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, a, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * cfg.Server.ReadTimeout,
	}
	srv.RegisterOnShutdown(h.Stream.Shutdown)

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
			"backend":     cfg.Backend.URL,
		}).Info("Starting Hawk API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Server exited")
	return nil
}
