// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package db stores calibration profiles, click events and tracking sessions.
// SQLite is the default backend; PostgreSQL and MySQL are supported through
// the same bun models.
package db // import "github.com/mehmetaltunel/eyemouse/internal/db"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// driverFor maps a database type to its registered driver name.
func driverFor(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "mysql":
		return dbType, nil
	case "postgres":
		// pgx stdlib registers as "pgx"
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported database type: '%s'", dbType)
	}
}

// NewStoreFromDSN opens the database, creates missing tables and returns a
// bun-backed Store. Pool sizes can be tuned with EYEMOUSE_DB_MAX_OPEN_CONNS,
// EYEMOUSE_DB_MAX_IDLE_CONNS and EYEMOUSE_DB_CONN_MAX_LIFETIME_SECONDS.
func NewStoreFromDSN(dbType, dsn string) (*BunStore, error) {
	driverName, err := driverFor(dbType)
	if err != nil {
		return nil, err
	}
	if dbType == "sqlite" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := ensureParentDir(dsn); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	const (
		defaultMaxOpenConns    = 10
		defaultMaxIdleConns    = 10
		defaultConnMaxLifetime = 5 * time.Minute
	)
	maxOpen := envInt("EYEMOUSE_DB_MAX_OPEN_CONNS", defaultMaxOpenConns)
	maxIdle := envInt("EYEMOUSE_DB_MAX_IDLE_CONNS", defaultMaxIdleConns)
	connMax := defaultConnMaxLifetime
	if n := envInt("EYEMOUSE_DB_CONN_MAX_LIFETIME_SECONDS", -1); n >= 0 {
		connMax = time.Duration(n) * time.Second
	}

	// An in-memory SQLite database exists per connection, so keep exactly one.
	if dbType == "sqlite" && (dsn == ":memory:" || strings.Contains(dsn, "mode=memory")) {
		maxOpen, maxIdle = 1, 1
		connMax = 0
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(connMax)
	dbLogf("db: opened %s driver in %s (max open=%d, idle=%d, lifetime=%s)", driverName, time.Since(start), maxOpen, maxIdle, connMax)

	bdb := createBunDB(sqlDB, dbType)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migStart := time.Now()
	if err := migrate(ctx, bdb); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}
	dbLogf("db: schema for %s ready in %s", dbType, time.Since(migStart))
	return &BunStore{bun: bdb, dbType: dbType}, nil
}

// createBunDB wraps sqlDB with the dialect for dbType.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// RunDBMaintenance compacts the database: PRAGMA optimize plus VACUUM on
// SQLite, VACUUM ANALYZE on PostgreSQL and OPTIMIZE TABLE on MySQL.
func RunDBMaintenance(ctx context.Context, dbType, dsn string) error {
	driverName, err := driverFor(dbType)
	if err != nil {
		return err
	}
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for maintenance: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	switch dbType {
	case "sqlite":
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
			dbLogf("db: sqlite optimize failed (ignored): %v", err)
		}
		if _, err := sqlDB.ExecContext(ctx, "VACUUM;"); err != nil {
			return fmt.Errorf("sqlite vacuum failed: %w", err)
		}
		var res string
		if err := sqlDB.QueryRowContext(ctx, "PRAGMA integrity_check;").Scan(&res); err == nil && res != "ok" {
			return fmt.Errorf("sqlite integrity_check failed: %s", res)
		}
	case "postgres":
		if _, err := sqlDB.ExecContext(ctx, "VACUUM ANALYZE;"); err != nil {
			return fmt.Errorf("postgres vacuum failed: %w", err)
		}
	case "mysql":
		for _, table := range tableNames {
			if _, err := sqlDB.ExecContext(ctx, "OPTIMIZE TABLE "+table); err != nil {
				return fmt.Errorf("mysql optimize %s failed: %w", table, err)
			}
		}
	}
	return nil
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func ensureParentDir(path string) error {
	if i := strings.LastIndexAny(path, `/\`); i > 0 {
		if err := os.MkdirAll(path[:i], 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return nil
}
