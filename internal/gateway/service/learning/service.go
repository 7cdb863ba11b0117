// Package learning runs the codebase-learning pipeline in the background and
// owns its status.
package learning

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codelens/internal/artifact"
	llmclient "codelens/internal/llmClient"
	"codelens/internal/runner"
	"codelens/internal/util/jsonutil"
	"codelens/internal/workers/codebase"
)

var (
	ErrNotConfigured = errors.New("learning: no model credential configured")
	ErrBusy          = errors.New("learning: a run is already in progress")
	ErrInvalidPath   = errors.New("learning: invalid project path")
	ErrClosed        = errors.New("learning: service is shut down")
)

// ArchiveFile is the archive path of each run's analysis.
const ArchiveFile = "codebase_analysis.json"

// Status messages.
const (
	msgStarting = "Starting codebase analysis"
	msgSaving   = "Saving analysis"
	msgComplete = "Codebase analysis complete"
)

const progressSaving int32 = 95

// Learner is the background pipeline body.
type Learner interface {
	Run(ctx context.Context, in codebase.LearnIn) (artifact.CodebaseAnalysis, error)
}

// AnalysisStore persists the result of a run.
type AnalysisStore interface {
	UpdateAnalysis(ctx context.Context, projectPath string, analysis artifact.CodebaseAnalysis) (artifact.ProjectState, error)
}

// Archive keeps a copy of each run's output.
type Archive interface {
	Put(ctx context.Context, runID, path string, content []byte) error
}

type Options struct {
	Learner Learner
	Store   AnalysisStore
	// Archive is optional; archive failures are logged and never fail a run.
	Archive Archive
	Metrics *Metrics
	Logger  *zap.Logger
	// EventBuffer sizes the worker's event channel. Defaults to 8.
	EventBuffer int
	NewRunID    func() string
}

// TriggerRequest starts a run for ProjectPath using the preferred provider
// among Credentials.
type TriggerRequest struct {
	ProjectPath string
	Credentials llmclient.Credentials
}

type Service struct {
	learner Learner
	store   AnalysisStore
	archive Archive
	metrics *Metrics
	log     *zap.Logger
	buffer  int
	newID   func() string
	status  *StatusHolder

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(opts Options) (*Service, error) {
	if opts.Learner == nil {
		return nil, errors.New("learning: learner is required")
	}
	if opts.Store == nil {
		return nil, errors.New("learning: store is required")
	}
	s := &Service{
		learner: opts.Learner,
		store:   opts.Store,
		archive: opts.Archive,
		metrics: opts.Metrics,
		log:     opts.Logger,
		buffer:  opts.EventBuffer,
		newID:   opts.NewRunID,
		status:  NewStatusHolder(),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.buffer <= 0 {
		s.buffer = 8
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Trigger validates req and starts a background run. It returns as soon as
// the run is started; the outcome is observed through Status or Watch.
// Configuration problems are reported synchronously and leave the status
// unchanged.
func (s *Service) Trigger(_ context.Context, req TriggerRequest) (string, error) {
	path := strings.TrimSpace(req.ProjectPath)
	if path == "" {
		return "", fmt.Errorf("%w: path is required", ErrInvalidPath)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	// A missing root is left to the run, which ends in error.
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, abs)
	}
	provider, credential, err := req.Credentials.Select()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	runID := s.newID()
	if !s.status.begin(runID, abs, msgStarting) {
		return "", ErrBusy
	}
	s.metrics.started()
	s.wg.Add(1)
	go s.control(runID, codebase.LearnIn{Root: abs, Provider: provider, Credential: credential})
	s.log.Info("learning run started",
		zap.String("run_id", runID),
		zap.String("root", abs),
		zap.String("provider", string(provider)))
	return runID, nil
}

// Status returns the current status.
func (s *Service) Status() Status { return s.status.Get() }

// Watch streams status changes until ctx is done.
func (s *Service) Watch(ctx context.Context) <-chan Status { return s.status.Watch(ctx) }

// Finished returns the final status of runID if it ended recently.
func (s *Service) Finished(runID string) (Status, bool) { return s.status.Finished(runID) }

// Close cancels any in-flight run and waits for it to settle.
func (s *Service) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
	return nil
}

// control is the run's controller. It applies the worker's events to the
// status in order and performs persistence once the worker reports success.
func (s *Service) control(runID string, in codebase.LearnIn) {
	defer s.wg.Done()
	start := time.Now()
	log := s.log.With(zap.String("run_id", runID))

	events := runner.Start(s.ctx, "codebase", s.buffer, func(ctx context.Context) (any, error) {
		return s.learner.Run(ctx, in)
	})
	var terminal *runner.RunEvent
	for ev := range events {
		switch {
		case ev.Type == runner.EventTypeProgress:
			s.status.advance(runID, ev.Progress, ev.Message)
		case ev.Type.Terminal():
			e := ev
			terminal = &e
		default:
			log.Debug("learning worker", zap.String("message", ev.Message))
		}
	}

	outcome, msg := s.settle(log, runID, in.Root, terminal)
	s.status.finish(runID, outcome, msg)
	s.metrics.finished(outcome, time.Since(start))
	log.Info("learning run finished",
		zap.String("outcome", string(outcome)),
		zap.Duration("elapsed", time.Since(start)))
}

func (s *Service) settle(log *zap.Logger, runID, root string, ev *runner.RunEvent) (State, string) {
	if ev == nil {
		log.Error("learning worker exited without a result")
		return StateError, "learning worker exited without a result"
	}
	if ev.Type == runner.EventTypeError {
		var pe *runner.PanicError
		if errors.As(ev.Err, &pe) {
			log.Error("learning worker panicked", zap.Any("panic", pe.Value), zap.ByteString("stack", pe.Stack))
		} else {
			log.Warn("learning run failed", zap.Error(ev.Err))
		}
		return StateError, ev.Message
	}
	analysis, ok := ev.Result.(artifact.CodebaseAnalysis)
	if !ok {
		log.Error("learning worker returned unexpected result", zap.String("type", fmt.Sprintf("%T", ev.Result)))
		return StateError, "learning worker returned no analysis"
	}

	s.status.advance(runID, progressSaving, msgSaving)
	if _, err := s.store.UpdateAnalysis(s.ctx, root, analysis); err != nil {
		log.Error("persist analysis failed", zap.Error(err))
		return StateError, fmt.Sprintf("persist analysis: %v", err)
	}
	s.archiveResult(log, runID, analysis)
	return StateComplete, msgComplete
}

func (s *Service) archiveResult(log *zap.Logger, runID string, analysis artifact.CodebaseAnalysis) {
	if s.archive == nil {
		return
	}
	b, err := jsonutil.MarshalNoEscapeIndent(analysis, "", "  ")
	if err == nil {
		err = s.archive.Put(s.ctx, runID, ArchiveFile, b)
	}
	if err != nil {
		log.Warn("archive analysis failed", zap.Error(err))
	}
}
