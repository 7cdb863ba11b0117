package app

import (
	"context"

	"go.uber.org/zap"

	"codelens/internal/gateway/config"
	"codelens/internal/gateway/repository/artifact"
	"codelens/internal/gateway/repository/projectstore"
)

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*projectstore.Store, artifact.Store, error) {
	state := projectstore.Open(ctx, cfg.Store.Path, cfg.Store.PostgresDSN, log)
	log.Info("project store ready", zap.String("backend", state.Backend()))

	archive, err := artifact.Open(ctx, artifact.Config{
		Backend: cfg.Archive.Backend,
		S3: artifact.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		},
		PostgresDSN: cfg.Archive.PostgresDSN,
	}, log)
	if err != nil {
		// Runs never fail on the archive, so neither does startup.
		log.Warn("artifact archive unavailable, using memory", zap.String("backend", cfg.Archive.Backend), zap.Error(err))
		archive = artifact.NewMemoryStore()
	}
	return state, archive, nil
}

type closer interface{ Close() error }

func closeArchive(s artifact.Store) error {
	if c, ok := s.(closer); ok {
		return c.Close()
	}
	return nil
}
