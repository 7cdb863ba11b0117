// Package app wires configuration, stores, the model gateway and the
// services into a runnable gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"codelens/internal/artifact"
	"codelens/internal/gateway/config"
	"codelens/internal/gateway/handler/rpc"
	archive "codelens/internal/gateway/repository/artifact"
	"codelens/internal/gateway/repository/projectstore"
	"codelens/internal/gateway/server"
	"codelens/internal/gateway/service/assist"
	"codelens/internal/gateway/service/learning"
	llmclient "codelens/internal/llmClient"
	"codelens/internal/scan"
	"codelens/internal/workers/codebase"
)

const (
	shutdownTimeout = 10 * time.Second
	retryBaseDelay  = 500 * time.Millisecond
	// fakeCredential stands in for a key when the offline model is on.
	fakeCredential = "offline"
)

type App struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *prometheus.Registry

	store   *projectstore.Store
	archive archive.Store
	llm     *llmclient.Dispatcher

	Learning    *learning.Service
	Assist      *assist.Service
	Credentials llmclient.Credentials
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, arch, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	llm, err := llmclient.NewDispatcher(llmclient.DispatcherOptions{
		Factory: llmclient.DefaultFactory(llmclient.FactoryConfig{
			GeminiModel: cfg.LLM.GeminiModel,
			GroqModel:   cfg.LLM.GroqModel,
			GroqBaseURL: cfg.LLM.GroqBaseURL,
			Fake:        cfg.LLM.Fake,
		}),
		Middlewares: []llmclient.Middleware{
			llmclient.WithMetrics(llmclient.NewMetrics(reg)),
			llmclient.WithLogging(logger),
			llmclient.Retry(max(cfg.LLM.Retries, 1), retryBaseDelay, logger),
			llmclient.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
		},
		Logger: logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: model gateway: %w", err)
	}

	learner := &codebase.Learner{
		LLM: llm,
		Samples: scan.SampleOptions{
			MaxFiles:     cfg.Learn.MaxFiles,
			MaxDepth:     cfg.Learn.MaxDepth,
			PreviewChars: cfg.Learn.PreviewChars,
			Logger:       logger,
		},
		Logger: logger,
	}
	learn, err := learning.New(learning.Options{
		Learner: learner,
		Store:   store,
		Archive: arch,
		Metrics: learning.NewMetrics(reg),
		Logger:  logger,
	})
	if err != nil {
		_ = llm.Close()
		_ = store.Close()
		return nil, err
	}
	as, err := assist.New(assist.Options{LLM: llm, Store: store, Logger: logger})
	if err != nil {
		_ = learn.Close()
		_ = llm.Close()
		_ = store.Close()
		return nil, err
	}

	return &App{
		cfg:         cfg,
		log:         logger,
		registry:    reg,
		store:       store,
		archive:     arch,
		llm:         llm,
		Learning:    learn,
		Assist:      as,
		Credentials: credentials(cfg.LLM),
	}, nil
}

// credentials returns the configured keys. With the offline model on and no
// key set, a placeholder lets runs start.
func credentials(c config.LLMConfig) llmclient.Credentials {
	creds := llmclient.Credentials{Gemini: c.GeminiAPIKey, Groq: c.GroqAPIKey}
	if c.Fake && !creds.Configured() {
		creds.Gemini = fakeCredential
	}
	return creds
}

// Handler returns the full HTTP surface.
func (a *App) Handler() http.Handler {
	return server.NewMux(server.Handlers{
		Learning: rpc.NewLearningHandler(a.Learning, a.Credentials),
		Project:  rpc.NewProjectHandler(a.store, nil, a.log),
		Assist:   rpc.NewAssistHandler(a.Assist, a.Credentials),
		Archive:  rpc.NewArchiveHandler(a.archive),
		Status:   rpc.NewStatusSocket(a.Learning, a.log),
		Gatherer: a.registry,
	}, a.log)
}

// Serve runs the API server on addr until ctx is done, then shuts it down.
func (a *App) Serve(ctx context.Context, addr string) error {
	if strings.TrimSpace(addr) == "" {
		addr = a.cfg.Port
	}
	srv := server.New(addr, a.Handler(), a.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info("api server shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// Learn runs one learning pass over root and waits for its outcome. Each
// status change is passed to onStatus when it is set.
func (a *App) Learn(ctx context.Context, root string, onStatus func(learning.Status)) (artifact.CodebaseAnalysis, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	updates := a.Learning.Watch(wctx)

	runID, err := a.Learning.Trigger(ctx, learning.TriggerRequest{ProjectPath: root, Credentials: a.Credentials})
	if err != nil {
		return artifact.CodebaseAnalysis{}, err
	}
	for st := range updates {
		if st.RunID != runID {
			continue
		}
		if onStatus != nil {
			onStatus(st)
		}
		switch st.State {
		case learning.StateComplete:
			saved, err := a.store.Load(ctx)
			if err != nil {
				return artifact.CodebaseAnalysis{}, err
			}
			if saved == nil || saved.CodebaseIndex == nil {
				return artifact.CodebaseAnalysis{}, errors.New("app: run completed without a saved analysis")
			}
			return *saved.CodebaseIndex, nil
		case learning.StateError:
			return artifact.CodebaseAnalysis{}, fmt.Errorf("learning failed: %s", st.Message)
		}
	}
	return artifact.CodebaseAnalysis{}, ctx.Err()
}

// Close stops background work and releases stores and model clients.
func (a *App) Close() error {
	return errors.Join(
		a.Learning.Close(),
		a.llm.Close(),
		a.store.Close(),
		closeArchive(a.archive),
	)
}
