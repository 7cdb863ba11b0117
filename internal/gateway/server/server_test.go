package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codelens/internal/artifact"
	"codelens/internal/gateway/handler/rpc"
	"codelens/internal/gateway/repository/projectstore"
	"codelens/internal/gateway/service/assist"
	"codelens/internal/gateway/service/learning"
	llmclient "codelens/internal/llmClient"
	"codelens/internal/workers/codebase"
)

type learnerFunc func(ctx context.Context, in codebase.LearnIn) (artifact.CodebaseAnalysis, error)

func (f learnerFunc) Run(ctx context.Context, in codebase.LearnIn) (artifact.CodebaseAnalysis, error) {
	return f(ctx, in)
}

func newMux(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	store := projectstore.New(filepath.Join(t.TempDir(), "state.json"))
	learn, err := learning.New(learning.Options{
		Learner: learnerFunc(func(context.Context, codebase.LearnIn) (artifact.CodebaseAnalysis, error) {
			return artifact.FallbackAnalysis(), nil
		}),
		Store:   store,
		Metrics: learning.NewMetrics(reg),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = learn.Close() })
	as, err := assist.New(assist.Options{LLM: &llmclient.FakeClient{}, Store: store})
	require.NoError(t, err)

	return NewMux(Handlers{
		Learning: rpc.NewLearningHandler(learn, llmclient.Credentials{}),
		Project:  rpc.NewProjectHandler(store, nil, nil),
		Assist:   rpc.NewAssistHandler(as, llmclient.Credentials{}),
		Status:   rpc.NewStatusSocket(learn, nil),
		Gatherer: reg,
	}, nil)
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := httptest.NewServer(newMux(t))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "learning_runs_in_flight")

	resp, err = http.Post(srv.URL+rpc.LearningServiceGetStatusProcedure, "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `"status":"idle"`)
}

func TestServerShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := New(ln.Addr().String(), newMux(t), nil)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}
