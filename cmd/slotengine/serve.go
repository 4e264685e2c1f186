package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/slot-engine/api"
	"github.com/warp/slot-engine/config"
	"github.com/warp/slot-engine/logging"
	"github.com/warp/slot-engine/store/sqlite"
)

// NewServeCommand creates the serve command.
//
// Startup: load config, set up logging, open SQLite, build the handler and
// router, then listen until SIGINT/SIGTERM. Shutdown stops accepting
// connections and waits up to 30s for active requests before closing the
// database.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API backed by a SQLite database.

Use --db=":memory:" for a throwaway in-memory database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts)
		},
	}

	cmd.Flags().Int("port", 8080, "HTTP server port")
	cmd.Flags().String("db", "slotengine.db", "SQLite database path")
	_ = rootOpts.Viper.BindPFlag("port", cmd.Flags().Lookup("port"))
	_ = rootOpts.Viper.BindPFlag("db", cmd.Flags().Lookup("db"))

	return cmd
}

func runServe(opts *RootOptions) error {
	cfg, err := config.Load(opts.Viper)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.Env, cfg.LogLevel)

	store, err := sqlite.New(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	router := api.NewRouter(handler, api.RouterOptions{CORSOrigins: cfg.CORSOrigins})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr()).Str("db", cfg.DB).Str("env", cfg.Env).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}
