// Package projectstore persists the single ProjectState document, either as
// a JSON file or as a row in Postgres.
package projectstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"codelens/internal/artifact"
)

// ErrNoState reports that nothing has been saved yet.
var ErrNoState = errors.New("projectstore: no project state saved")

// Store keeps one ProjectState. Every write replaces the whole document.
// It is safe for concurrent use.
type Store struct {
	path string
	db   *sql.DB

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex

	schemaOnce sync.Once
	schemaErr  error

	now func() time.Time
}

// New returns a file-backed store at path.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// NewPostgres returns a store backed by the database at dsn.
func NewPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Open uses Postgres when dsn is set and falls back to the file at path
// when dsn is empty or the database cannot be reached.
func Open(ctx context.Context, path, dsn string, logger *zap.Logger) *Store {
	if strings.TrimSpace(dsn) == "" {
		return New(path)
	}
	s, err := NewPostgres(ctx, dsn)
	if err != nil {
		if logger != nil {
			logger.Warn("project store: postgres unavailable, using file", zap.String("path", path), zap.Error(err))
		}
		return New(path)
	}
	return s
}

// Backend names the storage in use.
func (s *Store) Backend() string {
	if s.db != nil {
		return "postgres"
	}
	return "file"
}

// Load returns the saved state, or nil when nothing has been saved yet.
func (s *Store) Load(ctx context.Context) (*artifact.ProjectState, error) {
	if s.db != nil {
		return s.loadDB(ctx, s.db)
	}
	return s.loadFile()
}

// Save replaces the saved state with st.
func (s *Store) Save(ctx context.Context, st artifact.ProjectState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st = s.stamp(st)
	if s.db != nil {
		return s.saveDB(ctx, s.db, st)
	}
	return s.saveFile(st)
}

// Update loads the state for projectPath, applies fn and saves the result.
// A missing state, or one saved for a different project, starts fresh.
func (s *Store) Update(ctx context.Context, projectPath string, fn func(*artifact.ProjectState) error) (artifact.ProjectState, error) {
	projectPath = strings.TrimSpace(projectPath)
	if projectPath == "" {
		return artifact.ProjectState{}, errors.New("projectstore: project path is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.updateDB(ctx, projectPath, fn)
	}

	cur, err := s.loadFile()
	if err != nil {
		return artifact.ProjectState{}, err
	}
	next := forProject(cur, projectPath)
	if err := fn(&next); err != nil {
		return artifact.ProjectState{}, err
	}
	next = s.stamp(next)
	if err := s.saveFile(next); err != nil {
		return artifact.ProjectState{}, err
	}
	return next, nil
}

// UpdateAnalysis replaces the analysis of projectPath's state.
func (s *Store) UpdateAnalysis(ctx context.Context, projectPath string, analysis artifact.CodebaseAnalysis) (artifact.ProjectState, error) {
	a := analysis.Normalize()
	return s.Update(ctx, projectPath, func(st *artifact.ProjectState) error {
		st.CodebaseIndex = &a
		return nil
	})
}

// Close releases the database handle, if any.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func forProject(cur *artifact.ProjectState, projectPath string) artifact.ProjectState {
	if cur == nil || cur.ProjectPath != projectPath {
		return artifact.NormalizeState(artifact.ProjectState{ProjectPath: projectPath})
	}
	return artifact.NormalizeState(*cur)
}

func (s *Store) stamp(st artifact.ProjectState) artifact.ProjectState {
	st = artifact.NormalizeState(st)
	st.UpdatedAt = s.now().UTC()
	return st
}
