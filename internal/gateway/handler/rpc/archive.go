package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"connectrpc.com/connect"

	artifactmodel "codelens/internal/artifact"
	"codelens/internal/gateway/repository/artifact"
	"codelens/internal/gateway/service/learning"
)

type ListRunArtifactsRequest struct {
	RunID string `json:"runId"`
}

type RunArtifact struct {
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
}

type ListRunArtifactsResponse struct {
	Artifacts []RunArtifact `json:"artifacts"`
}

type GetRunAnalysisRequest struct {
	RunID string `json:"runId"`
}

// ArchiveHandler serves what past learning runs archived.
type ArchiveHandler struct {
	store artifact.Store
}

func NewArchiveHandler(store artifact.Store) *ArchiveHandler {
	return &ArchiveHandler{store: store}
}

func (h *ArchiveHandler) ListRunArtifacts(ctx context.Context, req *connect.Request[ListRunArtifactsRequest]) (*connect.Response[ListRunArtifactsResponse], error) {
	runID := strings.TrimSpace(req.Msg.RunID)
	if runID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("runId is required"))
	}
	paths, err := h.store.List(ctx, runID)
	if err != nil {
		return nil, toConnectError(err)
	}
	signer, _ := h.store.(artifact.URLSigner)
	out := &ListRunArtifactsResponse{Artifacts: make([]RunArtifact, 0, len(paths))}
	for _, p := range paths {
		a := RunArtifact{Path: p}
		if signer != nil {
			if u, err := signer.GetURL(ctx, runID, p); err == nil {
				a.URL = u
			}
		}
		out.Artifacts = append(out.Artifacts, a)
	}
	return connect.NewResponse(out), nil
}

func (h *ArchiveHandler) GetRunAnalysis(ctx context.Context, req *connect.Request[GetRunAnalysisRequest]) (*connect.Response[artifactmodel.CodebaseAnalysis], error) {
	runID := strings.TrimSpace(req.Msg.RunID)
	if runID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("runId is required"))
	}
	raw, err := h.store.Get(ctx, runID, learning.ArchiveFile)
	if err != nil {
		return nil, toConnectError(err)
	}
	var a artifactmodel.CodebaseAnalysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, connect.NewError(connect.CodeDataLoss, err)
	}
	a = a.Normalize()
	return connect.NewResponse(&a), nil
}
