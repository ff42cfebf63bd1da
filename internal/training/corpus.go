// Package training loads a labeled PDF corpus and fits the classifier on it.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/common"
	"github.com/joseph-ayodele/docclass/internal/ingest"
	"github.com/joseph-ayodele/docclass/internal/pdftext"
	"github.com/joseph-ayodele/docclass/internal/textnorm"
)

// TextExtractor is satisfied by *pdftext.Extractor.
type TextExtractor interface {
	ExtractFile(ctx context.Context, path string) (pdftext.ExtractionResult, error)
}

type TrainingExample struct {
	Path           string
	RawText        string
	NormalizedText string
	Label          constants.Label
}

type CorpusStats struct {
	Dirs      uint32                  `json:"dirs" yaml:"dirs"`
	Scanned   uint32                  `json:"scanned" yaml:"scanned"`
	Loaded    uint32                  `json:"loaded" yaml:"loaded"`
	Skipped   uint32                  `json:"skipped" yaml:"skipped"`
	PerLabel  map[constants.Label]int `json:"per_label" yaml:"per_label"`
	Unlabeled []string                `json:"unlabeled,omitempty" yaml:"unlabeled,omitempty"` // directories whose name is not a known label
}

type Loader struct {
	extractor TextExtractor
	logger    *slog.Logger
}

func NewLoader(extractor TextExtractor, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{extractor: extractor, logger: logger}
}

// LoadCorpus reads root/<label-dir>/*.pdf. The label is the canonicalized
// directory name; directories that name no label are skipped with a warning.
// A label directory that yields no readable document is fatal.
func (l *Loader) LoadCorpus(ctx context.Context, root string) ([]TrainingExample, CorpusStats, error) {
	stats := CorpusStats{PerLabel: map[constants.Label]int{}}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, stats, fmt.Errorf("read corpus root: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var corpus []TrainingExample
	for _, e := range entries {
		if !e.IsDir() || ingest.IsHidden(e.Name()) {
			continue
		}
		label, ok := constants.Canonicalize(e.Name())
		if !ok {
			l.logger.Warn("skipping directory with unknown label", "dir", e.Name())
			stats.Unlabeled = append(stats.Unlabeled, e.Name())
			continue
		}
		examples, ds, err := l.LoadLabeledDir(ctx, filepath.Join(root, e.Name()), label)
		stats.Dirs++
		stats.Scanned += ds.Scanned
		stats.Loaded += ds.Loaded
		stats.Skipped += ds.Skipped
		stats.PerLabel[label] += len(examples)
		if err != nil {
			return nil, stats, err
		}
		corpus = append(corpus, examples...)
	}

	l.logger.Info("corpus loaded",
		"root", root,
		"examples", len(corpus),
		"skipped", stats.Skipped,
		"labels", len(stats.PerLabel),
	)
	return corpus, stats, nil
}

// LoadLabeledDir reads every PDF directly under dir with an explicit label.
// Files that fail extraction are logged, counted and excluded.
func (l *Loader) LoadLabeledDir(ctx context.Context, dir string, label constants.Label) ([]TrainingExample, CorpusStats, error) {
	stats := CorpusStats{PerLabel: map[constants.Label]int{}}

	paths, _, err := ingest.ScanDirectory(ctx, dir, ingest.ScanOptions{SkipHidden: true}, l.logger)
	if err != nil {
		return nil, stats, err
	}

	examples := make([]TrainingExample, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.Scanned++
		res, err := l.extractor.ExtractFile(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, stats, ctx.Err()
			}
			l.logger.Warn("skipping unreadable pdf", "path", p, "label", label, "error", err)
			stats.Skipped++
			continue
		}
		examples = append(examples, TrainingExample{
			Path:           p,
			RawText:        res.Text,
			NormalizedText: textnorm.Normalize(res.Text),
			Label:          label,
		})
		stats.Loaded++
	}
	stats.PerLabel[label] = len(examples)

	if len(examples) == 0 {
		return nil, stats, common.EmptyLabelError(label, dir)
	}
	return examples, stats, nil
}
