package database

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/frahmantamala/pocket-ledger/db"
	"github.com/frahmantamala/pocket-ledger/internal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects gorm to the configured driver and applies pool settings.
// SQLite connections get foreign keys, a busy timeout and WAL (file databases only).
func Open(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.LogQueries {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite:
		if !isMemory(cfg.Source) {
			if err := os.MkdirAll(filepath.Dir(cfg.Source), 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dialector = sqlite.Open(sqliteDSN(cfg.Source, cfg.BusyTimeout))
	case DriverPostgres:
		connCfg, err := pgx.ParseConfig(cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("parse postgres source: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: stdlib.OpenDB(*connCfg)})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	if cfg.Driver == DriverSQLite && isMemory(cfg.Source) {
		// every new connection to :memory: is a fresh empty database
		maxOpen, maxIdle = 1, 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if cfg.ConnMaxLifetime > 0 && !isMemory(cfg.Source) {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 && !isMemory(cfg.Source) {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return gdb, nil
}

// Migrate applies every pending embedded migration for the driver's dialect.
func Migrate(ctx context.Context, gdb *gorm.DB, driver string) error {
	provider, err := newProvider(gdb, driver)
	if err != nil {
		return err
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Rollback reverts the most recently applied migration.
func Rollback(ctx context.Context, gdb *gorm.DB, driver string) error {
	provider, err := newProvider(gdb, driver)
	if err != nil {
		return err
	}
	if _, err := provider.Down(ctx); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// OpenMemory returns a migrated in-memory SQLite database.
func OpenMemory(ctx context.Context) (*gorm.DB, error) {
	gdb, err := Open(internal.DatabaseConfig{
		Driver:       DriverSQLite,
		Source:       ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		BusyTimeout:  time.Second,
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, gdb, DriverSQLite); err != nil {
		return nil, err
	}
	return gdb, nil
}

func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLX wraps the pool behind gdb for hand-written read queries. It shares
// gdb's connections, so closing gdb closes it too.
func SQLX(gdb *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	driver := "sqlite3"
	if gdb.Dialector.Name() == DriverPostgres {
		driver = "pgx"
	}
	return sqlx.NewDb(sqlDB, driver), nil
}

func newProvider(gdb *gorm.DB, driver string) (*goose.Provider, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	dialect := goose.DialectSQLite3
	if driver == DriverPostgres {
		dialect = goose.DialectPostgres
	}

	fsys, err := fs.Sub(db.Migrations, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("open migrations for %s: %w", driver, err)
	}

	provider, err := goose.NewProvider(dialect, sqlDB, fsys)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return provider, nil
}

func isMemory(source string) bool {
	return source == ":memory:" || strings.Contains(source, "mode=memory")
}

func sqliteDSN(source string, busyTimeout time.Duration) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	if busyTimeout > 0 {
		params.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout.Milliseconds()))
	}
	if !isMemory(source) {
		params.Set("_journal_mode", "WAL")
		params.Set("_synchronous", "NORMAL")
	}

	sep := "?"
	if strings.Contains(source, "?") {
		sep = "&"
	}
	if source == ":memory:" {
		source = "file::memory:"
	}
	return source + sep + params.Encode()
}
