// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// CalibrationModel maps the calibrations table. Transform and points are
// JSON text so every backend stores them the same way.
type CalibrationModel struct {
	bun.BaseModel `bun:"table:calibrations"`
	ID            int       `bun:"id,pk,autoincrement"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	ScreenWidth   int       `bun:"screen_width,notnull"`
	ScreenHeight  int       `bun:"screen_height,notnull"`
	Transform     string    `bun:"transform,type:text,notnull"`
	Points        string    `bun:"points,type:text,notnull"`
}

// ClickEventModel maps the click_events table.
type ClickEventModel struct {
	bun.BaseModel `bun:"table:click_events"`
	ID            int       `bun:"id,pk,autoincrement"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	Action        string    `bun:"action,notnull"`
	X             int       `bun:"x"`
	Y             int       `bun:"y"`
	Injected      bool      `bun:"injected"`
}

// SessionModel maps the sessions table.
type SessionModel struct {
	bun.BaseModel `bun:"table:sessions"`
	ID            int          `bun:"id,pk,autoincrement"`
	StartedAt     time.Time    `bun:"started_at,notnull"`
	EndedAt       sql.NullTime `bun:"ended_at"`
	Source        string       `bun:"source"`
	Calibrated    bool         `bun:"calibrated"`
	LeftClicks    int          `bun:"left_clicks"`
	RightClicks   int          `bun:"right_clicks"`
	DoubleClicks  int          `bun:"double_clicks"`
}

// schemaMigration records applied schema steps.
type schemaMigration struct {
	bun.BaseModel `bun:"table:schema_migrations"`
	Version       string    `bun:"version,pk,type:varchar(191)"`
	AppliedAt     time.Time `bun:"applied_at"`
}

var tableNames = []string{"calibrations", "click_events", "sessions"}

type migration struct {
	version string
	up      func(ctx context.Context, tx bun.Tx) error
}

var migrations = []migration{
	{"0001_initial", func(ctx context.Context, tx bun.Tx) error {
		for _, m := range []any{(*CalibrationModel)(nil), (*ClickEventModel)(nil), (*SessionModel)(nil)} {
			if _, err := tx.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}},
	{"0002_click_events_created_at", func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewCreateIndex().Model((*ClickEventModel)(nil)).
			Index("idx_click_events_created_at").Column("created_at").Exec(ctx)
		return err
	}},
}

// migrate applies missing steps, each inside its own transaction.
func migrate(ctx context.Context, bdb *bun.DB) error {
	if _, err := bdb.NewCreateTable().Model((*schemaMigration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	for _, m := range migrations {
		err := bdb.NewSelect().Model((*schemaMigration)(nil)).Column("version").Where("version = ?", m.version).Limit(1).Scan(ctx, new(string))
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check migration %s: %w", m.version, err)
		}
		err = bdb.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if err := m.up(ctx, tx); err != nil {
				return err
			}
			_, err := tx.NewInsert().Model(&schemaMigration{Version: m.version, AppliedAt: time.Now().UTC()}).Exec(ctx)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.version, err)
		}
		dbLogf("db: applied migration %s", m.version)
	}
	return nil
}
