package rpc

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"

	"codelens/internal/gateway/service/learning"
	llmclient "codelens/internal/llmClient"
)

// LearningService is the orchestrator as seen by the RPC layer.
type LearningService interface {
	Trigger(ctx context.Context, req learning.TriggerRequest) (string, error)
	Status() learning.Status
	Watch(ctx context.Context) <-chan learning.Status
	Finished(runID string) (learning.Status, bool)
}

type TriggerLearningRequest struct {
	ProjectPath  string `json:"projectPath"`
	GeminiAPIKey string `json:"geminiApiKey,omitempty"`
	GroqAPIKey   string `json:"groqApiKey,omitempty"`
}

type TriggerLearningResponse struct {
	RunID  string          `json:"runId"`
	Status learning.Status `json:"status"`
}

type GetStatusRequest struct{}

// WatchStatusRequest ends the stream when RunID reaches a terminal state.
// Without a RunID the first terminal snapshot ends it. A RunID that is no
// longer current gets its final snapshot, or NotFound if it is unknown.
type WatchStatusRequest struct {
	RunID string `json:"runId,omitempty"`
}

type LearningHandler struct {
	svc LearningService
	// creds are the configured keys; request keys take precedence.
	creds llmclient.Credentials
}

func NewLearningHandler(svc LearningService, creds llmclient.Credentials) *LearningHandler {
	return &LearningHandler{svc: svc, creds: creds}
}

func (h *LearningHandler) TriggerLearning(ctx context.Context, req *connect.Request[TriggerLearningRequest]) (*connect.Response[TriggerLearningResponse], error) {
	runID, err := h.svc.Trigger(ctx, learning.TriggerRequest{
		ProjectPath: req.Msg.ProjectPath,
		Credentials: mergeCredentials(req.Msg.GeminiAPIKey, req.Msg.GroqAPIKey, h.creds),
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&TriggerLearningResponse{RunID: runID, Status: h.svc.Status()}), nil
}

func (h *LearningHandler) GetStatus(_ context.Context, _ *connect.Request[GetStatusRequest]) (*connect.Response[learning.Status], error) {
	st := h.svc.Status()
	return connect.NewResponse(&st), nil
}

func (h *LearningHandler) WatchStatus(ctx context.Context, req *connect.Request[WatchStatusRequest], stream *connect.ServerStream[learning.Status]) error {
	runID := strings.TrimSpace(req.Msg.RunID)
	for st := range h.svc.Watch(ctx) {
		if runID != "" && st.RunID != runID {
			// One run is in flight at a time, so runID has already ended.
			done, ok := h.svc.Finished(runID)
			if !ok {
				return connect.NewError(connect.CodeNotFound, fmt.Errorf("learning run %q not found", runID))
			}
			return stream.Send(&done)
		}
		if err := stream.Send(&st); err != nil {
			return err
		}
		if terminal(st) && (runID == "" || st.RunID == runID) {
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return connect.NewError(connect.CodeCanceled, err)
	}
	return nil
}

func terminal(st learning.Status) bool {
	return st.State == learning.StateComplete || st.State == learning.StateError
}

func mergeCredentials(gemini, groq string, fallback llmclient.Credentials) llmclient.Credentials {
	gemini, groq = strings.TrimSpace(gemini), strings.TrimSpace(groq)
	if gemini == "" && groq == "" {
		return fallback
	}
	return llmclient.Credentials{Gemini: gemini, Groq: groq}
}
