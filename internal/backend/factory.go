package backend

import (
	"context"
	"errors"
	"fmt"

	"spendlog/internal/amqp"
	"spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/storage"
)

// PublisherDialer opens the change-event publisher.
type PublisherDialer func(cfg Config, logger *log.Logger) (Publisher, error)

// Publisher is an EventPublisher that holds a connection.
type Publisher interface {
	services.EventPublisher
	Close() error
}

// Factory builds backends from configuration.
type Factory struct {
	logger *log.Logger
	dial   PublisherDialer
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &Factory{
		logger: logger.WithComponent(log.ComponentBackend),
		dial:   dialAMQP,
	}
}

// WithPublisherDialer replaces how the AMQP publisher is opened.
func (f *Factory) WithPublisherDialer(dial PublisherDialer) *Factory {
	f.dial = dial
	return f
}

func dialAMQP(cfg Config, logger *log.Logger) (Publisher, error) {
	return amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
}

// Create opens the datastore, applies migrations, connects the optional
// publisher and assembles the services.
func (f *Factory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// A nil interface keeps the services from publishing.
	var publisher services.EventPublisher
	var conn Publisher
	if cfg.AMQPURL != "" {
		conn, err = f.dial(cfg, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
			conn = nil
		} else {
			publisher = conn
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	f.logger.Info("Initialized backend",
		"backend", cfg.Type.String(),
		"amqp_enabled", publisher != nil)

	return &Result{
		Repo:       repo,
		Categories: services.NewCategoryService(repo, publisher, f.logger),
		Expenses:   services.NewExpenseService(repo, publisher, f.logger),
		Publishing: publisher != nil,
		Cleanup: func() error {
			var errs []error
			if conn != nil {
				errs = append(errs, conn.Close())
			}
			errs = append(errs, repo.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *Factory) openRepository(ctx context.Context, cfg Config) (*storage.Repository, error) {
	switch cfg.Type {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(ctx, cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case Postgres:
		repo, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
