package async

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/common"
	"github.com/joseph-ayodele/docclass/internal/training"
)

// CorpusLoader is satisfied by *training.Loader.
type CorpusLoader interface {
	LoadCorpus(ctx context.Context, root string) ([]training.TrainingExample, training.CorpusStats, error)
}

// Retrainer refits the model from the corpus on a cron schedule, saves the
// artifacts and publishes the new bundle. A failed run keeps the current model.
type Retrainer struct {
	schedule  cron.Schedule
	spec      string
	corpusDir string
	loader    CorpusLoader
	cfg       classifier.Config
	store     classifier.ArtifactStore
	holder    *classifier.Holder
	logger    *slog.Logger
}

// NewRetrainer parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func NewRetrainer(
	spec, corpusDir string,
	loader CorpusLoader,
	cfg classifier.Config,
	store classifier.ArtifactStore,
	holder *classifier.Holder,
	logger *slog.Logger,
) (*Retrainer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	spec = strings.TrimSpace(spec)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("invalid retrain schedule %q", spec), err)
	}
	return &Retrainer{
		schedule:  sched,
		spec:      spec,
		corpusDir: corpusDir,
		loader:    loader,
		cfg:       cfg,
		store:     store,
		holder:    holder,
		logger:    logger,
	}, nil
}

// Next returns the first activation after t.
func (r *Retrainer) Next(t time.Time) time.Time { return r.schedule.Next(t) }

// Run blocks until ctx is done, retraining at every activation.
func (r *Retrainer) Run(ctx context.Context) error {
	r.logger.Info("retrain scheduled", "cron", r.spec, "corpus_dir", r.corpusDir)
	for {
		now := time.Now()
		next := r.schedule.Next(now)
		r.logger.Info("next retrain", "at", next.Format(time.RFC3339), "in", next.Sub(now).Round(time.Second).String())

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		if err := r.RetrainOnce(ctx); err != nil {
			r.logger.Error("retrain failed, keeping current model", "error", err)
		}
	}
}

// RetrainOnce loads the corpus, fits on all of it, saves and swaps.
func (r *Retrainer) RetrainOnce(ctx context.Context) error {
	start := time.Now()
	corpus, stats, err := r.loader.LoadCorpus(ctx, r.corpusDir)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	bundle, err := training.TrainAll(corpus, r.cfg)
	if err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := classifier.SaveBundle(ctx, r.store, bundle); err != nil {
		return err
	}
	r.holder.Swap(bundle)
	r.logger.Info("retrain done",
		"examples", stats.Loaded,
		"skipped", stats.Skipped,
		"vocabulary", bundle.Vectorizer.Size(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
