// Package modelstore persists the classifier artifacts on disk or in S3.
package modelstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/common"
)

var (
	_ classifier.ArtifactStore = (*FSStore)(nil)
	_ classifier.ArtifactStore = (*S3Store)(nil)
)

// Open builds the store selected by cfg.Kind.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (classifier.ArtifactStore, error) {
	switch cfg.Kind {
	case "", "fs":
		return NewFSStore(cfg.Dir)
	case "s3":
		return NewS3Store(ctx, cfg, logger)
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown store kind %q", cfg.Kind), common.ErrInvalidInput)
	}
}
