package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const pingTimeout = 5 * time.Second

type PostgresClient struct {
	Pool *pgxpool.Pool
}

type PoolOption func(*pgxpool.Config)

func WithMaxConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

func WithMinConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n >= 0 && n <= c.MaxConns {
			c.MinConns = n
		}
	}
}

// NewPostgresClient открывает пул и проверяет его ping'ом
func NewPostgresClient(ctx context.Context, dsn string, opts ...PoolOption) (*PostgresClient, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	c := &PostgresClient{Pool: pool}
	if err := c.HealthCheck(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func (c *PostgresClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// RunMigrations накатывает все up-миграции, ErrNoChange не ошибка
func RunMigrations(sourceURL, dbURL string) error {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Debug().Msg("migrations: nothing to apply")
	case err != nil:
		return fmt.Errorf("migrate up: %w", err)
	}

	if version, dirty, err := m.Version(); err == nil {
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
	}
	return nil
}
