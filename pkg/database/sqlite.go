package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const defaultBusyTimeout = 5 * time.Second

// Config holds database configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// BusyTimeout bounds how long a writer waits for the database lock. Zero means five seconds.
	BusyTimeout time.Duration
}

// DB is the sqlite handle shared by the migrator and the repositories.
// Request-scoped transactions live in the persistence layer; this type only runs schema work.
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// New opens the database file and verifies the connection
func New(cfg Config, logger *zap.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("path", cfg.Path),
		zap.Duration("busy_timeout", busyTimeout(cfg)))
	return &DB{DB: sqlDB, logger: logger}, nil
}

// buildDSN enables WAL so readers never block the writer, and immediate
// transaction locking so concurrent writers queue on BEGIN instead of
// failing with SQLITE_BUSY on lock upgrade.
func buildDSN(cfg Config) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", strconv.FormatInt(busyTimeout(cfg).Milliseconds(), 10))
	params.Set("_foreign_keys", "on")
	params.Set("_txlock", "immediate")
	return "file:" + cfg.Path + "?" + params.Encode()
}

func busyTimeout(cfg Config) time.Duration {
	if cfg.BusyTimeout > 0 {
		return cfg.BusyTimeout
	}
	return defaultBusyTimeout
}

// execTx runs fn in its own transaction, rolling back on error or panic.
func (db *DB) execTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}
