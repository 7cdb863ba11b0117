package projectstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codelens/internal/artifact"
)

func analysis(summary string) artifact.CodebaseAnalysis {
	return artifact.CodebaseAnalysis{
		Summary:       summary,
		KeyComponents: []artifact.Component{{Name: "api", Path: "src/api.ts", Description: "routes"}},
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))
	st, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.Equal(t, "file", s.Backend())
}

func TestFileStoreUpdateAnalysis(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := New(path)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	st, err := s.UpdateAnalysis(ctx, "/work/p", analysis("first"))
	require.NoError(t, err)
	assert.Equal(t, "/work/p", st.ProjectPath)
	assert.Equal(t, fixed, st.UpdatedAt)
	require.NotNil(t, st.CodebaseIndex)
	assert.NotNil(t, st.CodebaseIndex.CoreFunctionality)

	loaded, err := New(path).Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, st, *loaded)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"coreFunctionality": []`)
	assert.Contains(t, string(raw), `"chatHistory": []`)
}

func TestFileStoreUpdateKeepsChatAndReplacesAnalysis(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, s.Save(ctx, artifact.ProjectState{
		ProjectPath: "/work/p",
		ChatHistory: []artifact.ChatMessage{{Role: artifact.ChatRoleUser, Content: "hi"}},
	}))

	_, err := s.UpdateAnalysis(ctx, "/work/p", analysis("first"))
	require.NoError(t, err)
	st, err := s.UpdateAnalysis(ctx, "/work/p", analysis("second"))
	require.NoError(t, err)
	assert.Equal(t, "second", st.CodebaseIndex.Summary)
	assert.Len(t, st.ChatHistory, 1)
}

func TestFileStoreUpdateForOtherProjectStartsFresh(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "state.json"))
	_, err := s.Update(ctx, "/work/a", func(st *artifact.ProjectState) error {
		st.ChatHistory = append(st.ChatHistory, artifact.ChatMessage{Role: artifact.ChatRoleUser, Content: "about a"})
		return nil
	})
	require.NoError(t, err)

	st, err := s.UpdateAnalysis(ctx, "/work/b", analysis("b"))
	require.NoError(t, err)
	assert.Equal(t, "/work/b", st.ProjectPath)
	assert.Empty(t, st.ChatHistory)
}

func TestFileStoreUpdateErrorLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "state.json"))
	_, err := s.UpdateAnalysis(ctx, "/work/p", analysis("keep"))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.Update(ctx, "/work/p", func(st *artifact.ProjectState) error {
		st.CodebaseIndex = nil
		return boom
	})
	assert.ErrorIs(t, err, boom)

	st, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "keep", st.CodebaseIndex.Summary)

	_, err = s.Update(ctx, " ", func(*artifact.ProjectState) error { return nil })
	assert.Error(t, err)
}

func TestFileStoreRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := New(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileStoreConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "state.json"))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "/work/p", func(st *artifact.ProjectState) error {
				st.ChatHistory = append(st.ChatHistory, artifact.ChatMessage{Role: artifact.ChatRoleUser, Content: "x"})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	st, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, st.ChatHistory, 10)
}

func TestOpenWithoutDSNUsesFile(t *testing.T) {
	s := Open(context.Background(), filepath.Join(t.TempDir(), "s.json"), "", nil)
	assert.Equal(t, "file", s.Backend())
	assert.NoError(t, s.Close())
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PROJECT_STORE_TEST_DSN")
	if dsn == "" {
		t.Skip("PROJECT_STORE_TEST_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgres(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.db.ExecContext(ctx, `DELETE FROM project_state`)
	require.NoError(t, err)

	st, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)

	saved, err := s.UpdateAnalysis(ctx, "/work/p", analysis("pg"))
	require.NoError(t, err)
	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved.CodebaseIndex, loaded.CodebaseIndex)
	assert.Equal(t, "postgres", s.Backend())
}
