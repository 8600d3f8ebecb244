package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/featurekg/internal/api"
	"github.com/rohankatakam/featurekg/internal/config"
	"github.com/rohankatakam/featurekg/internal/logging"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the graph editor API. The server starts even when the graph store
is unreachable; use POST /api/reconnect once it is back.

Changes to the log level in the config file are picked up without a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().Duration("health-interval", 30*time.Second, "graph store health check interval (0 disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	svc, err := openService(ctx, config.ValidationContextServe)
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())

	if interval, _ := cmd.Flags().GetDuration("health-interval"); interval > 0 {
		go svc.Watch(ctx, interval)
	}

	if cfgFile != "" {
		err := config.Watch(ctx, cfgFile, logging.Default(), func(next *config.Config) {
			logging.SetLevel(logging.ParseLevel(next.Log.Level))
			logger.WithField("level", next.Log.Level).Info("Log level updated")
		})
		if err != nil {
			logger.WithError(err).Warn("Config file watch disabled")
		}
	}

	router := api.NewRouter(svc, cfg.Server, logging.Default())
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
