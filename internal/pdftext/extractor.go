// Package pdftext pulls the text layer out of PDF documents, page by page.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/docclass/internal/common"
)

const (
	BackendLedongthuc = "ledongthuc"
	BackendPdfcpu     = "pdfcpu"
	BackendPdftotext  = "pdftotext"
	BackendOCR        = "ocr"
)

// Document is an opened PDF. Pages are 1-based.
type Document interface {
	NumPages() int
	PageText(page int) (string, error)
}

// Backend opens raw PDF bytes. Implementations must not retain data after Open returns an error.
type Backend interface {
	Name() string
	Open(data []byte) (Document, error)
}

type Config struct {
	Backend  string // primary backend, default ledongthuc
	Fallback string // tried when the primary cannot open the document

	// StrictPages turns an undecodable page into a document failure.
	// By default such pages are skipped, logged and reported in SkippedPages.
	StrictPages bool
	MaxPages    int // 0 = no limit
}

type ExtractionResult struct {
	Text         string
	Pages        int
	SkippedPages []int
	Backend      string
	Duration     time.Duration
	Warnings     []string
}

type Extractor struct {
	backends []Backend
	strict   bool
	maxPages int
	logger   *slog.Logger
}

type Option func(*Extractor)

// WithBackends replaces the configured backends, in priority order.
func WithBackends(b ...Backend) Option {
	return func(e *Extractor) {
		if len(b) > 0 {
			e.backends = b
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendLedongthuc
	}
	e := &Extractor{strict: cfg.StrictPages, maxPages: cfg.MaxPages, logger: logger}

	for _, name := range []string{cfg.Backend, cfg.Fallback} {
		if name == "" || (len(e.backends) > 0 && e.backends[0].Name() == name) {
			continue
		}
		b, err := BackendByName(name)
		if err != nil {
			return nil, err
		}
		e.backends = append(e.backends, b)
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

func BackendByName(name string) (Backend, error) {
	switch name {
	case BackendLedongthuc:
		return LedongthucBackend{}, nil
	case BackendPdfcpu:
		return PdfcpuBackend{}, nil
	case BackendPdftotext:
		return PdftotextBackend{}, nil
	case BackendOCR:
		return NewOCRBackend(OCRConfig{}), nil
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown pdf backend %q", name), common.ErrInvalidInput)
	}
}

// ExtractText reads every page in order and concatenates the page texts with no separator.
// Backends are tried in order; the next one runs when a backend cannot open the
// document, decodes no page, or finds no text layer at all.
func (e *Extractor) ExtractText(ctx context.Context, r io.Reader) (ExtractionResult, error) {
	start := time.Now()

	data, err := io.ReadAll(r)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("read pdf stream: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ExtractionResult{}, common.UnreadablePDFError("empty input", nil)
	}

	var lastErr error
	for _, b := range e.backends {
		if err := ctx.Err(); err != nil {
			return ExtractionResult{}, err
		}
		out, err := e.extractWith(ctx, b, data)
		if err == nil {
			out.Duration = time.Since(start)
			e.logger.Debug("text extraction done",
				"backend", out.Backend,
				"pages", out.Pages,
				"skipped", len(out.SkippedPages),
				"chars", len(out.Text),
				"duration_ms", out.Duration.Milliseconds(),
			)
			return out, nil
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		e.logger.Debug("backend could not extract text", "backend", b.Name(), "error", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = common.UnreadablePDFError("no pdf backend configured", nil)
	}
	return ExtractionResult{}, lastErr
}

func (e *Extractor) extractWith(ctx context.Context, b Backend, data []byte) (ExtractionResult, error) {
	out := ExtractionResult{Backend: b.Name()}
	doc, err := b.Open(data)
	if err != nil {
		return out, common.UnreadablePDFError("open document", err)
	}

	pages := doc.NumPages()
	if e.maxPages > 0 && pages > e.maxPages {
		out.Warnings = append(out.Warnings, fmt.Sprintf("truncated to %d of %d pages", e.maxPages, pages))
		pages = e.maxPages
	}
	e.logger.Debug("starting text extraction", "backend", out.Backend, "pages", pages, "bytes", len(data))

	var sb strings.Builder
	decoded := 0
	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		text, err := doc.PageText(n)
		if err != nil {
			if e.strict {
				return out, common.UnreadablePDFError(fmt.Sprintf("page %d", n), err)
			}
			e.logger.Warn("skipping undecodable page",
				"source", common.SourceFromContext(ctx), "page", n, "backend", out.Backend, "error", err)
			out.SkippedPages = append(out.SkippedPages, n)
			continue
		}
		decoded++
		sb.WriteString(text)
	}
	if decoded == 0 {
		return out, common.UnreadablePDFError(fmt.Sprintf("no decodable pages out of %d", pages), nil)
	}

	out.Text = Clean(sb.String())
	if out.Text == "" {
		return out, common.UnreadablePDFError("document has no text layer", nil)
	}
	out.Pages = pages
	return out, nil
}

// ExtractFile is ExtractText over a file on disk.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (ExtractionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ExtractionResult{}, err
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			e.logger.Warn("close file error", "path", path, "error", err)
		}
	}(f)
	return e.ExtractText(ctx, f)
}
