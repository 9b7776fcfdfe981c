package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"spendlog/internal/amqp"
	"spendlog/internal/backend"
	"spendlog/internal/cli"
	"spendlog/internal/config"
	"spendlog/internal/log"
	"spendlog/internal/sheets"
	"spendlog/internal/sheets/google"
	"spendlog/internal/sheets/memory"
	"spendlog/internal/worker"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Mirror expenses into Google Sheets from change events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger, err := setup(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			ctx, cancel := cli.SignalContext(cmd.Context(), logger)
			defer cancel()

			mirror, err := newMirror(ctx, cfg, logger)
			if err != nil {
				return err
			}
			var dial amqp.Dialer
			if cfg.AMQPURL != "" {
				dial = func() (*amqp.Client, error) {
					return amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
				}
			}
			return runWorker(ctx, cfg, mirror, dial, logger)
		},
	}
}

func newMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.Mirror, error) {
	if !cfg.SheetsEnabled() {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring into memory only")
		return memory.New(), nil
	}
	client, err := google.NewClient(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init google sheets: %w", err)
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("prepare sheet %q: %w", cfg.GoogleSheetName, err)
	}
	return client, nil
}

// runWorker consumes change events (when dial is set) and reconciles on every
// SyncInterval until ctx ends.
func runWorker(ctx context.Context, cfg *config.Config, mirror sheets.Mirror, dial amqp.Dialer, logger *log.Logger) error {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	// The worker only reads; it never publishes.
	bc.AMQPURL = ""
	res, err := backend.NewFactory(logger).Create(ctx, bc)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	w := worker.NewMirrorWorker(res.Repo, mirror, logger)

	g, gctx := errgroup.WithContext(ctx)
	if dial != nil {
		g.Go(func() error {
			return amqp.ConsumeWithRetry(gctx, dial, w.HandleChange, logger)
		})
	} else {
		logger.Warn("AMQP_URL not set, relying on periodic reconcile only")
	}
	g.Go(func() error {
		return w.RunReconciler(gctx, cfg.SyncInterval)
	})

	logger.Info("Worker started", "sync_interval", cfg.SyncInterval.String(), "amqp_enabled", dial != nil)
	err = g.Wait()
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logger.Info("Worker stopped")
		return nil
	}
	return err
}
