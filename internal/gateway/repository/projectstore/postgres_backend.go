package projectstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"codelens/internal/artifact"
)

// stateRowID is the key of the single state row.
const stateRowID = "current"

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS project_state (
  id TEXT PRIMARY KEY,
  project_path TEXT NOT NULL,
  doc JSONB NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *Store) loadDB(ctx context.Context, q queryer) (*artifact.ProjectState, error) {
	return s.selectDB(ctx, q, `SELECT doc FROM project_state WHERE id = $1`)
}

func (s *Store) selectDB(ctx context.Context, q queryer, query string) (*artifact.ProjectState, error) {
	var doc []byte
	err := q.QueryRowContext(ctx, query, stateRowID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st artifact.ProjectState
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, fmt.Errorf("projectstore: decode row: %w", err)
	}
	st = artifact.NormalizeState(st)
	return &st, nil
}

func (s *Store) saveDB(ctx context.Context, q queryer, st artifact.ProjectState) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
INSERT INTO project_state (id, project_path, doc, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id)
DO UPDATE SET project_path=EXCLUDED.project_path, doc=EXCLUDED.doc, updated_at=EXCLUDED.updated_at
`, stateRowID, st.ProjectPath, doc, st.UpdatedAt)
	return err
}

// updateDB runs the read-modify-write in one transaction holding the row
// lock, so concurrent processes do not lose each other's writes.
func (s *Store) updateDB(ctx context.Context, projectPath string, fn func(*artifact.ProjectState) error) (artifact.ProjectState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return artifact.ProjectState{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := s.selectDB(ctx, tx, `SELECT doc FROM project_state WHERE id = $1 FOR UPDATE`)
	if err != nil {
		return artifact.ProjectState{}, err
	}
	next := forProject(cur, projectPath)
	if err := fn(&next); err != nil {
		return artifact.ProjectState{}, err
	}
	next = s.stamp(next)
	if err := s.saveDB(ctx, tx, next); err != nil {
		return artifact.ProjectState{}, err
	}
	if err := tx.Commit(); err != nil {
		return artifact.ProjectState{}, err
	}
	return next, nil
}
