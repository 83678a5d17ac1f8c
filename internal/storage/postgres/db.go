package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB owns the connection pool shared by the repositories. Opening it runs
// the embedded migrations, including the default persona seed, so a fresh
// database comes up with the persona library in place.
type DB struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

// New connects to Postgres and brings the schema up to date.
func New(ctx context.Context, dsn string, logger *logrus.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db := &DB{pool: pool, logger: logger}
	if err := db.Migrate(); err != nil {
		pool.Close()
		return nil, err
	}

	return db, nil
}

// Migrate applies the embedded goose migrations.
func (d *DB) Migrate() error {
	d.logger.Info("running database migrations")

	goose.SetLogger(d.logger)
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(d.pool)
	defer sqlDB.Close()

	if err := goose.Up(sqlDB, "migrations", goose.WithAllowMissing()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	d.logger.Info("database migrations complete")
	return nil
}

// Pool exposes the underlying pool for the repositories.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// Close shuts down the connection pool.
func (d *DB) Close() {
	d.pool.Close()
}
