package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Drivers accepted by Config.Driver.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Driver string `yaml:"driver"`
	// Dir is the FileStore root, or the directory holding dcf.db for SQLite
	// when DSN is empty.
	Dir string `yaml:"dir"`
	// DSN is the PostgreSQL URL or SQLite path.
	DSN string `yaml:"dsn"`
}

// Open builds the configured backend. SQL backends are migrated before use.
func Open(ctx context.Context, cfg Config) (Store, error) {
	log := zerolog.Ctx(ctx)

	switch strings.ToLower(cfg.Driver) {
	case "", DriverFile:
		return NewFileStore(ctx, cfg.Dir)
	}

	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		log.Error().Str("driver", cfg.Driver).Msg("unknown store driver")
		return nil, fmt.Errorf("unknown store driver %q: %w", cfg.Driver, err)
	}
	dsn := cfg.DSN
	switch dialect {
	case DialectPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres store requires a DSN (DATABASE_URL)")
		}
	case DialectSQLite:
		if dsn == "" {
			dir := cfg.Dir
			if dir == "" {
				dir = ".cache"
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
			dsn = filepath.Join(dir, "dcf.db")
		}
	}
	return openSQL(ctx, dialect, dsn)
}

func openSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure sqlite: %w", err)
		}
	}
	if err := Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, err
	}
	if dialect == DialectSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	}
	zerolog.Ctx(ctx).Info().Str("dialect", string(dialect)).Msg("sql store opened")
	return NewSQLStore(db, dialect), nil
}
