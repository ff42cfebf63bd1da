package main

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/extract"
	"github.com/joseph-ayodele/docclass/internal/modelstore"
	"github.com/joseph-ayodele/docclass/internal/pdftext"
	"github.com/joseph-ayodele/docclass/internal/pipeline"
	"github.com/joseph-ayodele/docclass/internal/repository"
)

func newExtractor() (*pdftext.Extractor, error) {
	return pdftext.NewExtractor(pdftext.Config{
		Backend:     cfg.PDF.Backend,
		Fallback:    cfg.PDF.Fallback,
		StrictPages: cfg.PDF.StrictPages,
		MaxPages:    cfg.PDF.MaxPages,
	}, logger)
}

func classifierConfig() classifier.Config {
	return classifier.Config{
		Alpha: cfg.Classifier.Alpha,
		Vectorizer: classifier.VectorizerConfig{
			MaxFeatures:  cfg.Classifier.MaxFeatures,
			UseStopWords: cfg.Classifier.UseStopWords,
		},
	}
}

func openStore(ctx context.Context) (classifier.ArtifactStore, error) {
	return modelstore.Open(ctx, cfg.Store, logger)
}

// loadHolder loads the persisted model. A missing or inconsistent model is fatal:
// nothing is served without the vocabulary it was trained on.
func loadHolder(ctx context.Context, store classifier.ArtifactStore) (*classifier.Holder, error) {
	b, err := classifier.LoadBundle(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load model (run `docclass train` first): %w", err)
	}
	logger.Info("model loaded", "vocabulary", b.Vectorizer.Size(), "labels", b.Model.Labels, "trained_at", b.TrainedAt)
	return classifier.NewHolder(b), nil
}

func openResults(ctx context.Context) (*repository.DB, repository.ResultRepository, error) {
	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, repository.NewResultRepository(db, logger), nil
}

type runtime struct {
	ex      *pdftext.Extractor
	store   classifier.ArtifactStore
	holder  *classifier.Holder
	proc    *pipeline.Processor
	db      *repository.DB
	results repository.ResultRepository
}

func (r *runtime) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// newRuntime wires extractor, model, dispatcher and, when persist is set, the result sink.
func newRuntime(ctx context.Context, persist bool) (*runtime, error) {
	ex, err := newExtractor()
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	holder, err := loadHolder(ctx, store)
	if err != nil {
		return nil, err
	}
	dispatcher, err := extract.Default()
	if err != nil {
		return nil, err
	}

	rt := &runtime{ex: ex, store: store, holder: holder}
	opts := []pipeline.Option{pipeline.WithMaxBytes(int64(cfg.Server.MaxDocumentBytes))}
	if persist {
		rt.db, rt.results, err = openResults(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithResults(rt.results))
	}
	rt.proc = pipeline.NewProcessor(logger, ex, holder, dispatcher, cfg.Classifier.Threshold, opts...)
	return rt, nil
}
