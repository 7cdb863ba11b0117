// Package artifact archives the files a learning run produces, keyed by run
// ID and a relative path.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Store defines operations for persisting run artifacts.
type Store interface {
	Put(ctx context.Context, runID, path string, content []byte) error
	Get(ctx context.Context, runID, path string) ([]byte, error)
	List(ctx context.Context, runID string) ([]string, error)
}

// URLSigner is implemented by stores that can hand out download links.
type URLSigner interface {
	GetURL(ctx context.Context, runID, path string) (string, error)
}

var (
	ErrNotFound   = errors.New("artifact not found")
	ErrInvalidKey = errors.New("artifact: invalid run id or path")
)

// objectKey joins runID and p into "<runID>/<p>". Neither part may be
// empty or climb out of the run's prefix.
func objectKey(runID, p string) (string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return "", fmt.Errorf("%w: run id %q", ErrInvalidKey, runID)
	}
	clean := strings.TrimLeft(path.Clean("/"+strings.TrimSpace(p)), "/")
	if clean == "" || clean != strings.TrimLeft(strings.TrimSpace(p), "/") {
		return "", fmt.Errorf("%w: path %q", ErrInvalidKey, p)
	}
	return runID + "/" + clean, nil
}

func runPrefix(runID string) (string, error) {
	key, err := objectKey(runID, "x")
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(key, "x"), nil
}
