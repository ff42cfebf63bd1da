package async

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/ingest"
)

// Reloader watches a filesystem model store and swaps in the bundle whenever
// its artifacts change. A bundle that fails to load never replaces the served one.
type Reloader struct {
	dir      string
	store    classifier.ArtifactStore
	holder   *classifier.Holder
	debounce time.Duration
	logger   *slog.Logger
}

func NewReloader(dir string, store classifier.ArtifactStore, holder *classifier.Holder, debounce time.Duration, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{dir: dir, store: store, holder: holder, debounce: debounce, logger: logger}
}

// Run blocks until ctx is done.
func (r *Reloader) Run(ctx context.Context) error {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{r.dir},
		AllowedExts: constants.ModelArtifactExtensions,
		Debounce:    r.debounce,
		Logger:      r.logger,
	})
	if err != nil {
		return err
	}
	r.logger.Info("watching model store", "dir", r.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Warn("model watcher error", "dir", r.dir, "error", err)
		case p, ok := <-events:
			if !ok {
				return nil
			}
			switch filepath.Base(p) {
			case classifier.VectorizerArtifact, classifier.ClassifierArtifact:
				_ = r.Reload(ctx)
			}
		}
	}
}

// Reload loads both artifacts and publishes them together.
func (r *Reloader) Reload(ctx context.Context) error {
	b, err := classifier.LoadBundle(ctx, r.store)
	if err != nil {
		r.logger.Warn("model reload rejected, keeping current model", "dir", r.dir, "error", err)
		return err
	}
	r.holder.Swap(b)
	r.logger.Info("model reloaded", "dir", r.dir, "vocabulary", b.Vectorizer.Size(), "trained_at", b.TrainedAt)
	return nil
}
