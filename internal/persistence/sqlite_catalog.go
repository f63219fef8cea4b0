package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// OpenSQLite opens a SQLite database at path using the modernc.org/sqlite
// driver. ":memory:" databases are limited to one connection so every
// query sees the same database.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// SQLiteCatalog is a Catalog backed by SQLite. Screenshots are stored as
// BLOBs alongside their MIME type.
type SQLiteCatalog struct {
	db *sql.DB
}

var _ Catalog = (*SQLiteCatalog)(nil)

// NewSQLiteCatalog initializes the required schema in db and returns a new
// SQLiteCatalog.
func NewSQLiteCatalog(db *sql.DB) (*SQLiteCatalog, error) {
	c := &SQLiteCatalog{db: db}
	if err := c.initSchema(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCatalog) initSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS plan_steps (
			plan_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			step_number INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			element_description TEXT NOT NULL,
			screenshot_mime TEXT,
			screenshot BLOB,
			PRIMARY KEY (plan_id, position)
		);`,
	)
	return err
}

func (c *SQLiteCatalog) SavePlan(ctx context.Context, p Plan) (string, error) {
	if p.ID == "" {
		p.ID = ulid.Make().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO plans (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, created_at = excluded.created_at`,
		p.ID, p.Name, p.CreatedAt.UnixNano(),
	); err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_steps WHERE plan_id = ?`, p.ID); err != nil {
		return "", err
	}

	for i, s := range p.Steps {
		var mime sql.NullString
		var shot []byte
		if s.Screenshot != nil {
			mime = sql.NullString{String: s.Screenshot.MIMEType, Valid: true}
			shot = s.Screenshot.Data
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO plan_steps (plan_id, position, step_number, event_type, element_description, screenshot_mime, screenshot)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, i, s.StepNumber, s.EventType, s.ElementDescription, mime, shot,
		); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return p.ID, nil
}

func (c *SQLiteCatalog) GetPlan(ctx context.Context, id string) (Plan, error) {
	var p Plan
	var created int64
	row := c.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM plans WHERE id = ?`, id)
	if err := row.Scan(&p.ID, &p.Name, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}
	p.CreatedAt = time.Unix(0, created)

	rows, err := c.db.QueryContext(ctx, `
		SELECT step_number, event_type, element_description, screenshot_mime, screenshot
		FROM plan_steps
		WHERE plan_id = ?
		ORDER BY position`,
		id,
	)
	if err != nil {
		return Plan{}, err
	}
	defer rows.Close()

	p.Steps = []api.Step{}
	for rows.Next() {
		var s api.Step
		var mime sql.NullString
		var shot []byte
		if err := rows.Scan(&s.StepNumber, &s.EventType, &s.ElementDescription, &mime, &shot); err != nil {
			return Plan{}, err
		}
		if mime.Valid {
			s.Screenshot = &api.Image{MIMEType: mime.String, Data: shot}
		}
		p.Steps = append(p.Steps, s)
	}
	if err := rows.Err(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func (c *SQLiteCatalog) ListPlans(ctx context.Context) ([]PlanSummary, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.created_at,
			(SELECT COUNT(*) FROM plan_steps s WHERE s.plan_id = p.id)
		FROM plans p
		ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlanSummary
	for rows.Next() {
		var s PlanSummary
		var created int64
		if err := rows.Scan(&s.ID, &s.Name, &created, &s.StepCount); err != nil {
			return nil, err
		}
		s.CreatedAt = time.Unix(0, created)
		out = append(out, s)
	}
	return out, rows.Err()
}
