package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/l1jgo/horde/internal/config"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrUnsupportedDriver is returned by Open for a driver other than
// "postgres" or "sqlite".
var ErrUnsupportedDriver = errors.New("unsupported ledger driver")

// DB is the ledger database. Postgres goes through a pgx pool exposed as
// *sql.DB so both drivers share the same queries.
type DB struct {
	SQL     *sql.DB
	Dialect string // goose dialect: "postgres" or "sqlite3"

	pool *pgxpool.Pool
	log  *zap.Logger
}

func Open(ctx context.Context, cfg config.LedgerConfig, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Driver {
	case "postgres":
		return openPostgres(ctx, cfg, log)
	case "sqlite":
		return openSQLite(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.LedgerConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime.Duration

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{SQL: stdlib.OpenDBFromPool(pool), Dialect: "postgres", pool: pool, log: log}, nil
}

func openSQLite(ctx context.Context, cfg config.LedgerConfig, log *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.DSN, err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.DSN, err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	return &DB{SQL: db, Dialect: "sqlite3", log: log}, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(q string) string {
	if db.Dialect != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) Close() {
	db.SQL.Close()
	if db.pool != nil {
		db.pool.Close()
	}
}
