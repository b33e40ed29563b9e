package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
)

// SQLite is the durable ProjectStore. Snapshots are stored whole as one JSON
// document per row; updated_at is kept as a separate column so optimistic
// concurrency can be enforced in the UPDATE predicate itself.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL DEFAULT '',
	snapshot   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id);
`

// OpenSQLite opens (and if needed creates) the store at path.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Create(ctx context.Context, p *roadmap.Project) error {
	snapshot, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, snapshot, updated_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.UserID, string(snapshot), toMillis(p.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrExists
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*roadmap.Project, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM projects WHERE id = ?`, id).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return decodeSnapshot(snapshot)
}

func (s *SQLite) Update(ctx context.Context, p *roadmap.Project, expected time.Time) error {
	snapshot, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET user_id = ?, snapshot = ?, updated_at = ? WHERE id = ? AND updated_at = ?`,
		p.UserID, string(snapshot), toMillis(p.UpdatedAt), p.ID, toMillis(expected))
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	// The CAS predicate missed: either the row is gone or someone wrote in
	// between our load and this update.
	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM projects WHERE id = ?`, p.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	return ErrConflict
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, userID string) ([]*roadmap.Project, error) {
	query := `SELECT snapshot FROM projects ORDER BY updated_at DESC`
	args := []any{}
	if userID != "" {
		query = `SELECT snapshot FROM projects WHERE user_id = ? ORDER BY updated_at DESC`
		args = append(args, userID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []*roadmap.Project
	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p, err := decodeSnapshot(snapshot)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func decodeSnapshot(snapshot string) (*roadmap.Project, error) {
	var p roadmap.Project
	if err := json.Unmarshal([]byte(snapshot), &p); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &p, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}
