package rpc

import (
	"errors"
	"io/fs"

	"connectrpc.com/connect"

	"codelens/internal/gateway/repository/artifact"
	"codelens/internal/gateway/repository/projectstore"
	"codelens/internal/gateway/service/assist"
	"codelens/internal/gateway/service/learning"
	llmclient "codelens/internal/llmClient"
	"codelens/internal/llmtool"
	"codelens/internal/safeio"
)

func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}
	switch {
	case errors.Is(err, learning.ErrNotConfigured), errors.Is(err, assist.ErrNotConfigured),
		errors.Is(err, llmclient.ErrNoCredential):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, learning.ErrBusy):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, learning.ErrInvalidPath), errors.Is(err, assist.ErrEmptyMessage),
		errors.Is(err, assist.ErrNoCode), errors.Is(err, llmtool.ErrUnknownAction),
		errors.Is(err, safeio.ErrOutsideRoot), errors.Is(err, safeio.ErrIsDir),
		errors.Is(err, artifact.ErrInvalidKey):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, projectstore.ErrNoState), errors.Is(err, fs.ErrNotExist), errors.Is(err, artifact.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, learning.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
