/*
main.go - HTTP server entry point

PURPOSE:
  Loads configuration, opens the SQLite ledger, and serves the REST API
  until interrupted.

STARTUP SEQUENCE:
  1. Load config (defaults, file, .env, BUDGET_* env, flags)
  2. Build the slog logger
  3. Open SQLite store (migrations run on open)
  4. Build the engine and resume its clock from the log
  5. Configure HTTP router
  6. Serve with graceful shutdown

FLAGS:
  --config     Config file path
  --port       HTTP server port (default: 8080)
  --db         SQLite database path; ":memory:" for a throwaway ledger
  --log-level  debug, info, warn, error

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (server.shutdown_timeout)
  3. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/warp/bucket-ledger/api"
	"github.com/warp/bucket-ledger/budget"
	"github.com/warp/bucket-ledger/config"
	"github.com/warp/bucket-ledger/logging"
	"github.com/warp/bucket-ledger/store/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "budget-server",
		Short:         "Serve the bucket ledger REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./budget.yaml or $HOME/.config/budget/budget.yaml)")
	flags.Int("port", 8080, "HTTP server port")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("server.port", flags.Lookup("port"))
	_ = v.BindPFlag("database.path", flags.Lookup("db"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(os.Stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	if version, dirty, err := store.SchemaVersion(); err == nil {
		logger.Info("database ready", "path", cfg.Database.Path, "schema_version", version, "dirty", dirty)
	}

	engine := budget.NewEngine(store, budget.WithLogger(logger))
	if err := engine.Resume(ctx); err != nil {
		return err
	}

	handler := api.NewHandler(engine, logger)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.CORS.AllowedOrigins})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
