package artifact

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend     string
	S3          S3Config
	PostgresDSN string
}

// Open builds the store named by cfg.Backend. An empty backend selects the
// memory store.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendS3:
		s, err := NewS3Store(cfg.S3)
		if err != nil {
			return nil, err
		}
		logger.Info("artifact archive: s3", zap.String("endpoint", cfg.S3.Endpoint), zap.String("bucket", cfg.S3.Bucket))
		return s, nil
	case BackendPostgres:
		s, err := NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("artifact: open postgres: %w", err)
		}
		logger.Info("artifact archive: postgres")
		return s, nil
	}
	return nil, fmt.Errorf("artifact: unknown backend %q", cfg.Backend)
}
