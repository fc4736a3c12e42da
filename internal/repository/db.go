package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/bulk-resumes/internal/common"
)

const sqliteDriver = "sqlite"

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open connects to the configured driver and makes sure the table exists.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case common.DriverSQLite:
		db, err = OpenSQLite(ctx, cfg.DSN, logger)
	default:
		db, err = OpenPostgres(ctx, cfg, logger)
	}
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, db, cfg.Table); err != nil {
		Close(db, logger)
		return nil, err
	}
	return db, nil
}

// OpenPostgres creates a pgx pool and exposes it to sqlx through database/sql.
func OpenPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	logger.Info("db.connect", zap.String("driver", common.DriverPostgres))
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("db.connect.failed", zap.Error(err))
		return nil, fmt.Errorf("%w: parse dsn: %v", common.ErrDatabase, err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "bulk-resumes"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("db.connect.failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}

	// pgx's database/sql driver is registered as "pgx"; sqlx binds it with $N.
	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
	logger.Info("db.connect.ok")
	return db, nil
}

// OpenSQLite opens a modernc sqlite database. An empty dsn or ":memory:"
// yields a private in-memory database.
func OpenSQLite(ctx context.Context, dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	if dsn == "" || dsn == ":memory:" {
		dsn = "file::memory:"
	}
	logger.Info("db.connect", zap.String("driver", common.DriverSQLite), zap.String("dsn", dsn))
	db, err := sqlx.ConnectContext(ctx, sqliteDriver, dsn)
	if err != nil {
		logger.Error("db.connect.failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	// every connection to :memory: is a new database
	db.SetMaxOpenConns(1)
	logger.Info("db.connect.ok")
	return db, nil
}

// EnsureSchema creates the applicants table for the connection's dialect.
func EnsureSchema(ctx context.Context, db *sqlx.DB, table string) error {
	if !identRe.MatchString(table) {
		return common.NewAppError("CONFIG_ERROR", fmt.Sprintf("invalid table name %q", table), common.ErrInvalidInput)
	}
	idCol := "BIGSERIAL PRIMARY KEY"
	createdAt := "TIMESTAMPTZ NOT NULL DEFAULT now()"
	if db.DriverName() == sqliteDriver {
		idCol = "INTEGER PRIMARY KEY AUTOINCREMENT"
		createdAt = "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s,
	name TEXT,
	mobile TEXT,
	email TEXT,
	resume_url TEXT,
	candidate_category TEXT,
	special_remarks TEXT,
	justification TEXT,
	created_at %s
)`, table, idCol, createdAt)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: create table %s: %v", common.ErrDatabase, table, err)
	}
	return nil
}

// Close closes the database connections gracefully
func Close(db *sqlx.DB, logger *zap.Logger) {
	if db == nil {
		return
	}
	logger.Info("db.close")
	if err := db.Close(); err != nil {
		logger.Error("db.close.failed", zap.Error(err))
	}
}

// HealthCheck pings the database, bounded by timeout when it is positive.
func HealthCheck(ctx context.Context, db *sqlx.DB, timeout time.Duration, logger *zap.Logger) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Warn("db.ping.failed", zap.Error(err))
		return fmt.Errorf("%w: ping: %v", common.ErrDatabase, err)
	}
	logger.Debug("db.ping.ok")
	return nil
}
