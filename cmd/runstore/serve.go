package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/runstore/config"
	runstorehttp "github.com/sagarc03/runstore/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the runstore HTTP API. With --read-only the store is opened in
read-only mode and write routes are not mounted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "HTTP listen host (default: 127.0.0.1, env: RUNSTORE_SERVER_HOST)")
	serveCmd.Flags().Int("port", 0, "HTTP server port (default: 5000, env: RUNSTORE_SERVER_PORT)")
	serveCmd.Flags().Bool("read-only", false, "serve the store read-only (env: RUNSTORE_SERVER_READ_ONLY)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	cat, s, err := openCatalog(ctx, cfg, cfg.Server.ReadOnly)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.handle.Database().Validate(ctx); err != nil {
		return fmt.Errorf("validate database schema: %w", err)
	}

	handler := runstorehttp.NewHandler(&runstorehttp.HandlerConfig{
		ReadOnly: cfg.Server.ReadOnly,
		CORS:     cfg.CORS,
	}, cat)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"backend", cfg.Backend().Family(),
		"location", s.handle.Location(),
		"read_only", cfg.Server.ReadOnly,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
