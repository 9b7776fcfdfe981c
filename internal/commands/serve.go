package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"spendlog/internal/backend"
	"spendlog/internal/cli"
	"spendlog/internal/config"
	apphttp "spendlog/internal/http"
	"spendlog/internal/log"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var port, backendType, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the RPC server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("backend") {
				cfg.DataBackend = backendType
			}
			if flags.Changed("db") {
				cfg.SQLiteDBPath = dbPath
			}

			logger, err := setup(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			ctx, cancel := cli.SignalContext(cmd.Context(), logger)
			defer cancel()

			ln, err := net.Listen("tcp", cfg.Addr())
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
			}
			return runServer(ctx, cfg, ln, logger)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "HTTP port (overrides PORT)")
	cmd.Flags().StringVar(&backendType, "backend", "", "datastore: sqlite or postgres (overrides DATA_BACKEND)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file (overrides SQLITE_DB_PATH)")

	return cmd
}

// runServer serves on ln until ctx ends, then drains in-flight requests.
func runServer(ctx context.Context, cfg *config.Config, ln net.Listener, logger *log.Logger) error {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		ln.Close()
		return err
	}
	res, err := backend.NewFactory(logger).Create(ctx, bc)
	if err != nil {
		ln.Close()
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ln.Addr().String(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	}, res.Categories, res.Expenses, res.Repo)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", "addr", ln.Addr().String(), "backend", bc.Type.String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("Server stopped")
		return nil
	})
	return g.Wait()
}
