package repository

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/docclass/internal/common"
)

// DB wraps the SQL sink behind an ent driver. Postgres goes through a pgx pool.
type DB struct {
	Driver  *entsql.Driver
	Dialect string

	pool   *pgxpool.Pool
	sqlDB  *stdsql.DB
	logger *slog.Logger
}

// Open connects to the configured database and wraps it for ent's SQL builders.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "postgres":
		return openPostgres(ctx, cfg, logger)
	case "", "sqlite":
		return openSQLite(ctx, cfg, logger)
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unsupported database driver %q", cfg.Driver), common.ErrInvalidInput)
	}
}

func openPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: parse dsn: %w", common.ErrDatabase, err)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "docclass"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx, cancel := common.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &DB{
		Driver:  entsql.OpenDB(dialect.Postgres, db),
		Dialect: dialect.Postgres,
		pool:    pool,
		sqlDB:   db,
		logger:  logger,
	}, nil
}

func openSQLite(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "sqlite", "dsn", cfg.DSN)
	db, err := stdsql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	// single writer; busy_timeout in the DSN covers readers
	db.SetMaxOpenConns(1)

	pingCtx, cancel := common.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	logger.Info("successfully connected to database")
	return &DB{
		Driver:  entsql.OpenDB(dialect.SQLite, db),
		Dialect: dialect.SQLite,
		sqlDB:   db,
		logger:  logger,
	}, nil
}

const createResults = `CREATE TABLE IF NOT EXISTS document_results (
	id            TEXT PRIMARY KEY,
	source_path   TEXT NOT NULL,
	content_hash  TEXT NOT NULL UNIQUE,
	label         TEXT NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	fields_json   TEXT NOT NULL DEFAULT '{}',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
)`

const createResultsIndex = `CREATE INDEX IF NOT EXISTS document_results_label_created_at
	ON document_results (label, created_at)`

// Migrate creates the results table when missing. The DDL is valid on both dialects.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createResults, createResultsIndex} {
		if err := d.Driver.Exec(ctx, stmt, []any{}, nil); err != nil {
			d.logger.Error("migration failed", "error", err)
			return fmt.Errorf("%w: migrate: %w", common.ErrDatabase, err)
		}
	}
	return nil
}

// Close closes the database connections gracefully
func (d *DB) Close() {
	if d == nil {
		return
	}
	d.logger.Info("closing database connections")
	if err := d.Driver.Close(); err != nil {
		d.logger.Error("failed to close sql driver", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	d.logger.Debug("pinging database")
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	if d.pool != nil {
		err = d.pool.Ping(ctx)
	} else {
		err = d.sqlDB.PingContext(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w: ping: %w", common.ErrDatabase, err)
	}
	d.logger.Debug("database ping successful")
	return nil
}
