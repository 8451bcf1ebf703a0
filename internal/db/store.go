// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mehmetaltunel/eyemouse/internal/model"
	"github.com/uptrace/bun"
)

// Store is the persistence surface the rest of EyeMouse uses.
type Store interface {
	SaveCalibration(ctx context.Context, p model.CalibrationProfile) (int, error)
	LatestCalibration(ctx context.Context) (model.CalibrationProfile, error)
	ListCalibrations(ctx context.Context, limit int) ([]model.CalibrationProfile, error)

	LogClick(ctx context.Context, e model.ClickEvent) error
	RecentClicks(ctx context.Context, limit int) ([]model.ClickEvent, error)
	ClickCounts(ctx context.Context, since time.Time) (model.ClickCounts, error)

	StartSession(ctx context.Context, s model.Session) (int, error)
	EndSession(ctx context.Context, id int, end time.Time, clicks model.ClickCounts) error
	ListSessions(ctx context.Context, limit int) ([]model.Session, error)

	Close() error
}

// BunStore implements Store on any bun dialect.
type BunStore struct {
	bun    *bun.DB
	dbType string
}

var _ Store = (*BunStore)(nil)

// Type returns the backend name ("sqlite", "postgres" or "mysql").
func (s *BunStore) Type() string { return s.dbType }

// Close releases the connection pool.
func (s *BunStore) Close() error { return s.bun.Close() }

// SaveCalibration inserts a profile and returns its id. A zero CreatedAt is
// stamped with the current time.
func (s *BunStore) SaveCalibration(ctx context.Context, p model.CalibrationProfile) (int, error) {
	transform, err := json.Marshal(p.Transform)
	if err != nil {
		return 0, fmt.Errorf("failed to encode transform: %w", err)
	}
	points := p.Points
	if points == nil {
		points = []model.CalibrationPoint{}
	}
	pts, err := json.Marshal(points)
	if err != nil {
		return 0, fmt.Errorf("failed to encode points: %w", err)
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	m := &CalibrationModel{
		CreatedAt:    created.UTC(),
		ScreenWidth:  p.ScreenWidth,
		ScreenHeight: p.ScreenHeight,
		Transform:    string(transform),
		Points:       string(pts),
	}
	if _, err := s.bun.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	dbLogf("db: saved calibration %d (%s)", m.ID, p)
	return m.ID, nil
}

// LatestCalibration returns the newest profile or ErrNotFound.
func (s *BunStore) LatestCalibration(ctx context.Context) (model.CalibrationProfile, error) {
	var m CalibrationModel
	err := s.bun.NewSelect().Model(&m).OrderExpr("created_at DESC, id DESC").Limit(1).Scan(ctx)
	if err != nil {
		return model.CalibrationProfile{}, MapDBError(err)
	}
	return calibrationFromModel(m)
}

// ListCalibrations returns up to limit profiles, newest first. A limit of 0
// or less returns all of them.
func (s *BunStore) ListCalibrations(ctx context.Context, limit int) ([]model.CalibrationProfile, error) {
	var ms []CalibrationModel
	q := s.bun.NewSelect().Model(&ms).OrderExpr("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.CalibrationProfile, 0, len(ms))
	for _, m := range ms {
		p, err := calibrationFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func calibrationFromModel(m CalibrationModel) (model.CalibrationProfile, error) {
	p := model.CalibrationProfile{
		ID:           m.ID,
		CreatedAt:    m.CreatedAt,
		ScreenWidth:  m.ScreenWidth,
		ScreenHeight: m.ScreenHeight,
	}
	if err := json.Unmarshal([]byte(m.Transform), &p.Transform); err != nil {
		return p, fmt.Errorf("calibration %d: bad transform: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(m.Points), &p.Points); err != nil {
		return p, fmt.Errorf("calibration %d: bad points: %w", m.ID, err)
	}
	return p, nil
}

// LogClick records a wink action.
func (s *BunStore) LogClick(ctx context.Context, e model.ClickEvent) error {
	t := e.Time
	if t.IsZero() {
		t = time.Now()
	}
	m := &ClickEventModel{CreatedAt: t.UTC(), Action: string(e.Action), X: e.X, Y: e.Y, Injected: e.Injected}
	if _, err := s.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// RecentClicks returns up to limit events, newest first.
func (s *BunStore) RecentClicks(ctx context.Context, limit int) ([]model.ClickEvent, error) {
	var ms []ClickEventModel
	q := s.bun.NewSelect().Model(&ms).OrderExpr("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.ClickEvent, 0, len(ms))
	for _, m := range ms {
		out = append(out, model.ClickEvent{
			ID:       m.ID,
			Time:     m.CreatedAt,
			Action:   model.Action(m.Action),
			X:        m.X,
			Y:        m.Y,
			Injected: m.Injected,
		})
	}
	return out, nil
}

// ClickCounts tallies events at or after since.
func (s *BunStore) ClickCounts(ctx context.Context, since time.Time) (model.ClickCounts, error) {
	var rows []struct {
		Action string `bun:"action"`
		N      int    `bun:"n"`
	}
	err := s.bun.NewSelect().Model((*ClickEventModel)(nil)).
		Column("action").
		ColumnExpr("COUNT(*) AS n").
		Where("created_at >= ?", since.UTC()).
		Group("action").
		Scan(ctx, &rows)
	if err != nil {
		return model.ClickCounts{}, MapDBError(err)
	}
	var c model.ClickCounts
	for _, r := range rows {
		switch model.Action(r.Action) {
		case model.ActionLeftClick:
			c.Left = r.N
		case model.ActionRightClick:
			c.Right = r.N
		case model.ActionDoubleClick:
			c.Double = r.N
		}
	}
	return c, nil
}

// StartSession inserts a running session and returns its id.
func (s *BunStore) StartSession(ctx context.Context, sess model.Session) (int, error) {
	started := sess.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	m := &SessionModel{StartedAt: started.UTC(), Source: sess.Source, Calibrated: sess.Calibrated}
	if _, err := s.bun.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return m.ID, nil
}

// EndSession closes a session with its final click counts.
func (s *BunStore) EndSession(ctx context.Context, id int, end time.Time, clicks model.ClickCounts) error {
	res, err := s.bun.NewUpdate().Model((*SessionModel)(nil)).
		Set("ended_at = ?", end.UTC()).
		Set("left_clicks = ?", clicks.Left).
		Set("right_clicks = ?", clicks.Right).
		Set("double_clicks = ?", clicks.Double).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return MapDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions returns up to limit sessions, newest first.
func (s *BunStore) ListSessions(ctx context.Context, limit int) ([]model.Session, error) {
	var ms []SessionModel
	q := s.bun.NewSelect().Model(&ms).OrderExpr("started_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.Session, 0, len(ms))
	for _, m := range ms {
		sess := model.Session{
			ID:         m.ID,
			StartedAt:  m.StartedAt,
			Source:     m.Source,
			Calibrated: m.Calibrated,
			Clicks:     model.ClickCounts{Left: m.LeftClicks, Right: m.RightClicks, Double: m.DoubleClicks},
		}
		if m.EndedAt.Valid {
			end := m.EndedAt.Time
			sess.EndedAt = &end
		}
		out = append(out, sess)
	}
	return out, nil
}
