package artifact

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	run := uuid.NewString()

	_, err := s.Get(ctx, run, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, run, "codebase_analysis.json", []byte(`{"summary":"x"}`)))
	require.NoError(t, s.Put(ctx, run, "/notes/a.md", []byte("a")))
	require.NoError(t, s.Put(ctx, run, "codebase_analysis.json", []byte(`{"summary":"y"}`)))
	require.NoError(t, s.Put(ctx, "other-"+run, "z.txt", []byte("z")))

	got, err := s.Get(ctx, run, "codebase_analysis.json")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"y"}`, string(got))

	paths, err := s.List(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, []string{"codebase_analysis.json", "notes/a.md"}, paths)

	assert.ErrorIs(t, s.Put(ctx, run, "../escape", nil), ErrInvalidKey)
	assert.ErrorIs(t, s.Put(ctx, "", "a", nil), ErrInvalidKey)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesContent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "r", "f", buf))
	buf[0] = 'x'
	got, err := s.Get(ctx, "r", "f")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	paths, err := s.List(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		run, path string
		want      string
		wantErr   bool
	}{
		{run: "r1", path: "a.json", want: "r1/a.json"},
		{run: " r1 ", path: "/dir/a.json", want: "r1/dir/a.json"},
		{run: "r1", path: "dir/../a.json", wantErr: true},
		{run: "r1", path: "../a.json", wantErr: true},
		{run: "r1", path: "", wantErr: true},
		{run: "r/1", path: "a", wantErr: true},
		{run: "..", path: "a", wantErr: true},
	}
	for _, tt := range tests {
		got, err := objectKey(tt.run, tt.path)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidKey, "%q %q", tt.run, tt.path)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("r/codebase_analysis.JSON"))
	assert.Equal(t, "application/octet-stream", contentType("r/blob"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, Config{Backend: "S3"}, nil)
	assert.ErrorContains(t, err, "endpoint")

	_, err = Open(ctx, Config{Backend: "tape"}, nil)
	assert.ErrorContains(t, err, "unknown backend")
}

func TestS3Store(t *testing.T) {
	endpoint := os.Getenv("ARTIFACT_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("ARTIFACT_TEST_S3_ENDPOINT not set")
	}
	s, err := NewS3Store(S3Config{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("ARTIFACT_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("ARTIFACT_TEST_S3_SECRET_KEY"),
		Bucket:    "codelens-test",
	})
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("ARTIFACT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("ARTIFACT_TEST_PG_DSN not set")
	}
	s, err := NewPostgresStore(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}
