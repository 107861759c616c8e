package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the directory web server",
	Long: `Run the public directory page, its JSON API and the admin API.

Requires ADMIN_PASSWORD and SESSION_SECRET. Without GITHUB_TOKEN the
directory is served read-only and every change is refused.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	container, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := container.Config
	logger := container.Logger
	if err := cfg.ValidateServe(); err != nil {
		logger.Error("Invalid server configuration", zap.Error(err))
		return err
	}

	logger.Info("Parish directory starting...",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("log_level", cfg.Logging.Level),
	)

	server := container.NewServer()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Listen(cfg.HTTP.Addr); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		logger.Error("Server error", zap.Error(runErr))
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.HTTPConfig.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return runErr
}
