package rpc

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"codelens/internal/artifact"
	"codelens/internal/gateway/repository/projectstore"
	"codelens/internal/safeio"
	"codelens/internal/scan"
)

type StateLoader interface {
	Load(ctx context.Context) (*artifact.ProjectState, error)
}

type GetStateRequest struct{}

type GetFileTreeRequest struct {
	Path string `json:"path"`
}

type ReadFileRequest struct {
	Root string `json:"root"`
	Path string `json:"path"`
}

type ReadFileResponse struct {
	Content string `json:"content"`
}

type ProjectHandler struct {
	store  StateLoader
	ignore []string
	log    *zap.Logger
}

func NewProjectHandler(store StateLoader, ignore []string, logger *zap.Logger) *ProjectHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectHandler{store: store, ignore: ignore, log: logger}
}

func (h *ProjectHandler) GetState(ctx context.Context, _ *connect.Request[GetStateRequest]) (*connect.Response[artifact.ProjectState], error) {
	st, err := h.store.Load(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	if st == nil {
		return nil, toConnectError(projectstore.ErrNoState)
	}
	return connect.NewResponse(st), nil
}

func (h *ProjectHandler) GetFileTree(_ context.Context, req *connect.Request[GetFileTreeRequest]) (*connect.Response[scan.FileNode], error) {
	path := strings.TrimSpace(req.Msg.Path)
	if path == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("path is required"))
	}
	tree, err := scan.Tree(path, scan.TreeOptions{Ignore: h.ignore, Logger: h.log})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&tree), nil
}

func (h *ProjectHandler) ReadFile(_ context.Context, req *connect.Request[ReadFileRequest]) (*connect.Response[ReadFileResponse], error) {
	root, path := strings.TrimSpace(req.Msg.Root), strings.TrimSpace(req.Msg.Path)
	if root == "" || path == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("root and path are required"))
	}
	fsys, err := safeio.NewSafeFS(root)
	if err != nil {
		return nil, toConnectError(err)
	}
	b, err := fsys.ReadFile(path)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ReadFileResponse{Content: string(b)}), nil
}
