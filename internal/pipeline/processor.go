// Package pipeline runs a PDF through text extraction, classification and field extraction.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/common"
	"github.com/joseph-ayodele/docclass/internal/extract"
	"github.com/joseph-ayodele/docclass/internal/ingest"
	"github.com/joseph-ayodele/docclass/internal/pdftext"
	"github.com/joseph-ayodele/docclass/internal/repository"
	"github.com/joseph-ayodele/docclass/internal/textnorm"
)

// TextExtractor is satisfied by *pdftext.Extractor.
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.Reader) (pdftext.ExtractionResult, error)
}

// Outcome is the result of processing one document. Fields is nil unless Status is EXTRACTED.
type Outcome struct {
	ID          uuid.UUID
	SourcePath  string
	ContentHash string
	Label       constants.Label
	Confidence  float64
	Status      constants.JobStatus
	Fields      extract.Fields
	Pages       int
	Backend     string
	Duration    time.Duration
}

// Processor coordinates text extraction, classification and field extraction.
// Results are persisted when a repository is configured.
type Processor struct {
	logger     *slog.Logger
	extractor  TextExtractor
	holder     *classifier.Holder
	dispatcher *extract.Dispatcher
	results    repository.ResultRepository
	threshold  float64
	maxBytes   int64
}

type Option func(*Processor)

// WithResults persists every processed file.
func WithResults(r repository.ResultRepository) Option {
	return func(p *Processor) { p.results = r }
}

// WithMaxBytes rejects larger documents before parsing them.
func WithMaxBytes(n int64) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

func NewProcessor(
	logger *slog.Logger,
	extractor TextExtractor,
	holder *classifier.Holder,
	dispatcher *extract.Dispatcher,
	threshold float64,
	opts ...Option,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:     logger,
		extractor:  extractor,
		holder:     holder,
		dispatcher: dispatcher,
		threshold:  threshold,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Classify returns the label of a PDF. A winning posterior under the threshold
// is a *common.LowConfidenceError and carries no usable label.
func (p *Processor) Classify(ctx context.Context, r io.Reader) (classifier.Result, error) {
	data, err := p.read(r)
	if err != nil {
		return classifier.Result{}, err
	}
	c, err := p.classify(ctx, data)
	if err != nil {
		p.logger.Error("processor.classify.failed", "error", err)
		return classifier.Result{}, err
	}
	return c.result, nil
}

// Process classifies a PDF and extracts the fields of its label. Nothing is persisted.
func (p *Processor) Process(ctx context.Context, r io.Reader) (Outcome, error) {
	data, err := p.read(r)
	if err != nil {
		return Outcome{}, err
	}
	return p.run(ctx, data, "")
}

// ProcessFile processes a file on disk and, with a repository, stores the outcome
// keyed by the file's content hash. Failures are stored too, then returned.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		p.logger.Error("processor.read.failed", "path", path, "error", err)
		return Outcome{SourcePath: path, Status: constants.JobStatusFailed}, err
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return Outcome{SourcePath: path, Status: constants.JobStatusFailed},
			common.UnreadablePDFError(fmt.Sprintf("document is %d bytes, limit %d", len(data), p.maxBytes), nil)
	}

	hash := ingest.HashBytes(data)
	ctx = common.WithSource(ctx, path)
	if p.results != nil {
		if _, _, err := p.results.UpsertByHash(ctx, &repository.DocumentResult{
			SourcePath:  path,
			ContentHash: hash,
			Status:      constants.JobStatusRunning,
		}); err != nil {
			return Outcome{SourcePath: path, ContentHash: hash, Status: constants.JobStatusFailed}, err
		}
	}

	out, runErr := p.run(ctx, data, path)
	out.ContentHash = hash
	if p.results == nil {
		return out, runErr
	}

	row, err := p.store(ctx, out, runErr)
	if err != nil {
		return out, errors.Join(runErr, err)
	}
	out.ID = row.ID
	return out, runErr
}

// MarkQueued records a file as accepted before a worker picks it up.
func (p *Processor) MarkQueued(ctx context.Context, path string) error {
	if p.results == nil {
		return nil
	}
	hash, _, err := ingest.HashFile(path)
	if err != nil {
		return err
	}
	_, _, err = p.results.UpsertByHash(ctx, &repository.DocumentResult{
		SourcePath:  path,
		ContentHash: hash,
		Status:      constants.JobStatusQueued,
	})
	return err
}

func (p *Processor) run(ctx context.Context, data []byte, source string) (Outcome, error) {
	start := time.Now()
	out := Outcome{SourcePath: source, Status: constants.JobStatusFailed}

	c, err := p.classify(ctx, data)
	out.Pages, out.Backend = c.extraction.Pages, c.extraction.Backend
	if err != nil {
		var low *common.LowConfidenceError
		if errors.As(err, &low) {
			out.Status, out.Confidence = constants.JobStatusUnrecognized, low.Confidence
			p.logger.Info("processor.classify.unrecognized",
				"source", source, "best_guess", low.Label, "confidence", low.Confidence, "threshold", low.Threshold)
		} else {
			p.logger.Error("processor.classify.failed", "source", source, "error", err)
		}
		out.Duration = time.Since(start)
		return out, err
	}
	out.Label, out.Confidence, out.Status = c.result.Label, c.result.Confidence, constants.JobStatusClassified

	if err := ctx.Err(); err != nil {
		out.Duration = time.Since(start)
		return out, err
	}
	fields, err := p.dispatcher.Extract(c.result.Label, c.extraction.Text)
	if err != nil {
		p.logger.Error("processor.extract.failed", "source", source, "label", c.result.Label, "error", err)
		out.Duration = time.Since(start)
		return out, err
	}
	if err := p.dispatcher.Validate(fields); err != nil {
		p.logger.Warn("processor.extract.schema_mismatch", "source", source, "label", c.result.Label, "error", err)
	}
	out.Fields, out.Status = fields, constants.JobStatusExtracted
	out.Duration = time.Since(start)

	p.logger.Info("processor.done",
		"source", source,
		"label", out.Label,
		"confidence", out.Confidence,
		"pages", out.Pages,
		"backend", out.Backend,
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

func (p *Processor) store(ctx context.Context, out Outcome, runErr error) (*repository.DocumentResult, error) {
	row := &repository.DocumentResult{
		SourcePath:  out.SourcePath,
		ContentHash: out.ContentHash,
		Label:       out.Label,
		Confidence:  out.Confidence,
		Status:      out.Status,
	}
	if runErr != nil {
		row.ErrorMessage = runErr.Error()
	}
	if out.Fields != nil {
		b, err := json.Marshal(out.Fields)
		if err != nil {
			return nil, fmt.Errorf("marshal fields: %w", err)
		}
		row.FieldsJSON = string(b)
	}
	// a canceled request still gets its outcome written
	saved, _, err := p.results.UpsertByHash(context.WithoutCancel(ctx), row)
	if err != nil {
		p.logger.Error("processor.store.failed", "source", out.SourcePath, "content_hash", out.ContentHash, "error", err)
		return nil, err
	}
	return saved, nil
}

func (p *Processor) read(r io.Reader) ([]byte, error) {
	if p.maxBytes > 0 {
		r = io.LimitReader(r, p.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return nil, common.UnreadablePDFError(fmt.Sprintf("document exceeds %d bytes", p.maxBytes), nil)
	}
	return data, nil
}

type classification struct {
	extraction pdftext.ExtractionResult
	result     classifier.Result
}

func (p *Processor) classify(ctx context.Context, data []byte) (classification, error) {
	var c classification
	if err := ctx.Err(); err != nil {
		return c, err
	}
	bundle, err := p.holder.Load()
	if err != nil {
		return c, err
	}

	c.extraction, err = p.extractor.ExtractText(ctx, bytes.NewReader(data))
	if err != nil {
		return c, err
	}
	if err := ctx.Err(); err != nil {
		return c, err
	}
	c.result, err = bundle.Predict(textnorm.Normalize(c.extraction.Text), p.threshold)
	return c, err
}
