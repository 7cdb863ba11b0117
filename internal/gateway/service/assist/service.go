// Package assist answers chat questions about the learned project and runs
// code transformations through the model gateway.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"codelens/internal/artifact"
	llmclient "codelens/internal/llmClient"
	"codelens/internal/llmtool"
	"codelens/internal/safeio"
)

var (
	ErrNotConfigured = errors.New("assist: no model credential configured")
	ErrEmptyMessage  = errors.New("assist: message is empty")
	ErrNoCode        = errors.New("assist: no code or file given")
)

const (
	defaultHistoryLimit = 20
	defaultMaxFileBytes = 256 << 10
)

// StateStore is the part of the project store the assistant needs.
type StateStore interface {
	Load(ctx context.Context) (*artifact.ProjectState, error)
	Update(ctx context.Context, projectPath string, fn func(*artifact.ProjectState) error) (artifact.ProjectState, error)
}

type Options struct {
	LLM   llmclient.Gateway
	Store StateStore
	// HistoryLimit caps the persisted turns replayed to the model. Defaults to 20.
	HistoryLimit int
	// MaxFileBytes caps file content read for Transform. Defaults to 256 KiB.
	MaxFileBytes int64
	Logger       *zap.Logger
}

type Service struct {
	llm          llmclient.Gateway
	store        StateStore
	historyLimit int
	maxFileBytes int64
	log          *zap.Logger
	now          func() time.Time
}

func New(opts Options) (*Service, error) {
	if opts.LLM == nil {
		return nil, errors.New("assist: gateway is required")
	}
	if opts.Store == nil {
		return nil, errors.New("assist: store is required")
	}
	s := &Service{
		llm:          opts.LLM,
		store:        opts.Store,
		historyLimit: opts.HistoryLimit,
		maxFileBytes: opts.MaxFileBytes,
		log:          opts.Logger,
		now:          time.Now,
	}
	if s.historyLimit <= 0 {
		s.historyLimit = defaultHistoryLimit
	}
	if s.maxFileBytes <= 0 {
		s.maxFileBytes = defaultMaxFileBytes
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s, nil
}

type ChatRequest struct {
	Message string
	// History replaces the persisted chat history when non-empty.
	History     []llmclient.Message
	Credentials llmclient.Credentials
}

type ChatResponse struct {
	Reply string
	// Persisted reports whether the turn was appended to the project's history.
	Persisted bool
}

// Chat answers req.Message with the learned analysis as context. When a
// project state exists the exchange is appended to its chat history.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return ChatResponse{}, ErrEmptyMessage
	}
	provider, credential, err := req.Credentials.Select()
	if err != nil {
		return ChatResponse{}, ErrNotConfigured
	}
	st, err := s.store.Load(ctx)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("assist: load state: %w", err)
	}

	history := req.History
	if len(history) == 0 && st != nil {
		history = s.replay(st.ChatHistory)
	}
	reply, err := s.llm.Generate(ctx, llmclient.GenerateRequest{
		Message:    msg,
		History:    append([]llmclient.Message{{Role: llmclient.RoleSystem, Content: llmtool.ChatSystemInstruction}}, history...),
		Provider:   provider,
		Credential: credential,
		Context:    llmtool.ChatContext(st),
	})
	if err != nil {
		return ChatResponse{}, err
	}

	if st == nil || st.ProjectPath == "" {
		return ChatResponse{Reply: reply}, nil
	}
	at := s.now().UTC()
	_, err = s.store.Update(ctx, st.ProjectPath, func(cur *artifact.ProjectState) error {
		cur.ChatHistory = append(cur.ChatHistory,
			artifact.ChatMessage{Role: artifact.ChatRoleUser, Content: msg, CreatedAt: at},
			artifact.ChatMessage{Role: artifact.ChatRoleAssistant, Content: reply, CreatedAt: at})
		return nil
	})
	if err != nil {
		s.log.Warn("assist: save chat history failed", zap.Error(err))
		return ChatResponse{Reply: reply}, nil
	}
	return ChatResponse{Reply: reply, Persisted: true}, nil
}

func (s *Service) replay(turns []artifact.ChatMessage) []llmclient.Message {
	if len(turns) > s.historyLimit {
		turns = turns[len(turns)-s.historyLimit:]
	}
	out := make([]llmclient.Message, 0, len(turns))
	for _, t := range turns {
		role := llmclient.RoleUser
		if t.Role == artifact.ChatRoleAssistant {
			role = llmclient.RoleAssistant
		}
		out = append(out, llmclient.Message{Role: role, Content: t.Content})
	}
	return out
}

// TransformRequest runs Action over Code, or over the file at Path under
// Root when Code is empty. Root defaults to the learned project.
type TransformRequest struct {
	Action      string
	Code        string
	Language    string
	Root        string
	Path        string
	Credentials llmclient.Credentials
}

type TransformResponse struct {
	Action llmtool.TransformAction
	Result string
}

func (s *Service) Transform(ctx context.Context, req TransformRequest) (TransformResponse, error) {
	action, err := llmtool.ParseTransformAction(req.Action)
	if err != nil {
		return TransformResponse{}, err
	}
	provider, credential, err := req.Credentials.Select()
	if err != nil {
		return TransformResponse{}, ErrNotConfigured
	}
	code := req.Code
	if strings.TrimSpace(code) == "" {
		if code, err = s.readSource(ctx, req.Root, req.Path); err != nil {
			return TransformResponse{}, err
		}
	}
	prompt, err := llmtool.BuildTransformRequest(action, code, req.Language)
	if err != nil {
		return TransformResponse{}, err
	}
	out, err := s.llm.Generate(ctx, llmclient.GenerateRequest{
		Message:    prompt.Message,
		History:    []llmclient.Message{{Role: llmclient.RoleSystem, Content: prompt.System}},
		Provider:   provider,
		Credential: credential,
	})
	if err != nil {
		return TransformResponse{}, err
	}
	return TransformResponse{Action: action, Result: out}, nil
}

func (s *Service) readSource(ctx context.Context, root, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrNoCode
	}
	if strings.TrimSpace(root) == "" {
		st, err := s.store.Load(ctx)
		if err != nil {
			return "", fmt.Errorf("assist: load state: %w", err)
		}
		if st == nil || st.ProjectPath == "" {
			return "", fmt.Errorf("%w: no project root", ErrNoCode)
		}
		root = st.ProjectPath
	}
	fsys, err := safeio.NewSafeFS(root)
	if err != nil {
		return "", err
	}
	b, err := fsys.ReadPrefix(path, s.maxFileBytes)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
