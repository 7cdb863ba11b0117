package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"codelens/internal/gateway/handler/rpc"
	"codelens/internal/gateway/middleware"
)

type Handlers struct {
	Learning *rpc.LearningHandler
	Project  *rpc.ProjectHandler
	Assist   *rpc.AssistHandler
	Archive  *rpc.ArchiveHandler
	Status   *rpc.StatusSocket
	// Gatherer backs /metrics. Nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

func NewMux(h Handlers, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// RPC handlers
	mux.Handle(rpc.NewLearningServiceHandler(h.Learning))
	mux.Handle(rpc.NewProjectServiceHandler(h.Project))
	mux.Handle(rpc.NewAssistServiceHandler(h.Assist))
	if h.Archive != nil {
		mux.Handle(rpc.NewArchiveServiceHandler(h.Archive))
	}

	mux.Handle("GET /ws/learning", h.Status)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if h.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}

	return middleware.CORS(middleware.AccessLog(logger, mux))
}
