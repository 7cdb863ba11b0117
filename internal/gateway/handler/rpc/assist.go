package rpc

import (
	"context"

	"connectrpc.com/connect"

	"codelens/internal/gateway/service/assist"
	llmclient "codelens/internal/llmClient"
)

type AssistService interface {
	Chat(ctx context.Context, req assist.ChatRequest) (assist.ChatResponse, error)
	Transform(ctx context.Context, req assist.TransformRequest) (assist.TransformResponse, error)
}

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message      string     `json:"message"`
	History      []ChatTurn `json:"history,omitempty"`
	GeminiAPIKey string     `json:"geminiApiKey,omitempty"`
	GroqAPIKey   string     `json:"groqApiKey,omitempty"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type TransformRequest struct {
	Action       string `json:"action"`
	Code         string `json:"code,omitempty"`
	Language     string `json:"language,omitempty"`
	Root         string `json:"root,omitempty"`
	Path         string `json:"path,omitempty"`
	GeminiAPIKey string `json:"geminiApiKey,omitempty"`
	GroqAPIKey   string `json:"groqApiKey,omitempty"`
}

type TransformResponse struct {
	Action string `json:"action"`
	Result string `json:"result"`
}

type AssistHandler struct {
	svc   AssistService
	creds llmclient.Credentials
}

func NewAssistHandler(svc AssistService, creds llmclient.Credentials) *AssistHandler {
	return &AssistHandler{svc: svc, creds: creds}
}

func (h *AssistHandler) Chat(ctx context.Context, req *connect.Request[ChatRequest]) (*connect.Response[ChatResponse], error) {
	history := make([]llmclient.Message, 0, len(req.Msg.History))
	for _, t := range req.Msg.History {
		role := llmclient.RoleUser
		if t.Role == string(llmclient.RoleAssistant) {
			role = llmclient.RoleAssistant
		}
		history = append(history, llmclient.Message{Role: role, Content: t.Content})
	}
	out, err := h.svc.Chat(ctx, assist.ChatRequest{
		Message:     req.Msg.Message,
		History:     history,
		Credentials: mergeCredentials(req.Msg.GeminiAPIKey, req.Msg.GroqAPIKey, h.creds),
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ChatResponse{Reply: out.Reply}), nil
}

func (h *AssistHandler) Transform(ctx context.Context, req *connect.Request[TransformRequest]) (*connect.Response[TransformResponse], error) {
	out, err := h.svc.Transform(ctx, assist.TransformRequest{
		Action:      req.Msg.Action,
		Code:        req.Msg.Code,
		Language:    req.Msg.Language,
		Root:        req.Msg.Root,
		Path:        req.Msg.Path,
		Credentials: mergeCredentials(req.Msg.GeminiAPIKey, req.Msg.GroqAPIKey, h.creds),
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&TransformResponse{Action: string(out.Action), Result: out.Result}), nil
}
