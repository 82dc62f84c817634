package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/transport/httpapi"
	"github.com/ragline/ragline/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP query API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	app, err := buildApp(environment())
	if err != nil {
		return err
	}
	defer app.Close()

	logger := app.Logger
	logger.Info("Starting ragline API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", app.Config.HTTP.Port),
		zap.String("collection", app.Config.Qdrant.Collection),
	)

	checks := map[string]httpapi.CheckFunc{
		"vector_store": func(ctx context.Context) error {
			_, err := app.Qdrant.CollectionExists(ctx)
			return err
		},
		"embedding_provider": app.Provider.HealthCheck,
	}
	if app.Store != nil {
		checks["cache"] = app.Store.Ping
	}

	server := httpapi.NewServer(app.Engine, checks, logger)

	addr := fmt.Sprintf(":%d", app.Config.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(app.Config.HTTP.APIKeys),
		ReadTimeout:  time.Duration(app.Config.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(app.Config.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(app.Config.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}
