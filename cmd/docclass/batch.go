package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docclass/internal/async"
	"github.com/joseph-ayodele/docclass/internal/ingest"
	"github.com/joseph-ayodele/docclass/internal/pipeline"
)

var (
	batchRecursive bool
	batchWorkers   int
)

type batchSummary struct {
	Dir       string         `json:"dir" yaml:"dir"`
	Files     int            `json:"files" yaml:"files"`
	Succeeded int            `json:"succeeded" yaml:"succeeded"`
	Failed    []string       `json:"failed,omitempty" yaml:"failed,omitempty"`
	ByStatus  map[string]int `json:"by_status" yaml:"by_status"`
	ElapsedMS int64          `json:"elapsed_ms" yaml:"elapsed_ms"`
}

// statusProcessor records each outcome status for the summary.
type statusProcessor struct {
	inner *pipeline.Processor
	mu    sync.Mutex
	seen  map[string]int
}

func (s *statusProcessor) ProcessFile(ctx context.Context, path string) (pipeline.Outcome, error) {
	out, err := s.inner.ProcessFile(ctx, path)
	s.mu.Lock()
	s.seen[string(out.Status)]++
	s.mu.Unlock()
	return out, err
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Classify and extract every PDF in a directory and store the results",
	Long: `Batch scans a directory for PDFs and runs them through a worker pool.
Each file is stored in the result database keyed by its content hash, so
running a batch twice updates rows instead of duplicating them.

Examples:
  docclass batch ./inbox
  docclass batch ./archive --recursive --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		rt, err := newRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		paths, _, err := ingest.ScanDirectory(ctx, args[0], ingest.ScanOptions{
			SkipHidden: true,
			Recursive:  batchRecursive,
		}, logger)
		if err != nil {
			return err
		}

		workers := cfg.Inbox.Workers
		if cmd.Flags().Changed("workers") {
			workers = batchWorkers
		}
		proc := &statusProcessor{inner: rt.proc, seen: map[string]int{}}
		var (
			mu     sync.Mutex
			failed []string
		)
		q := async.NewProcessorQueue(proc, logger,
			async.WithWorkers(workers),
			async.WithQueueSize(cfg.Inbox.Queue),
			async.WithProcessTimeout(cfg.Inbox.Timeout),
			async.WithCompletion(func(j async.Job, err error) {
				if err != nil {
					mu.Lock()
					failed = append(failed, j.Path)
					mu.Unlock()
				}
			}),
		)

		for _, p := range paths {
			if err := rt.proc.MarkQueued(ctx, p); err != nil {
				logger.Warn("could not mark file queued", "path", p, "error", err)
			}
			if err := q.Enqueue(ctx, async.NewJob(p)); err != nil {
				break
			}
		}
		q.Shutdown(context.WithoutCancel(ctx))

		sort.Strings(failed)
		return output(batchSummary{
			Dir:       args[0],
			Files:     len(paths),
			Succeeded: len(paths) - len(failed),
			Failed:    failed,
			ByStatus:  proc.seen,
			ElapsedMS: time.Since(start).Milliseconds(),
		})
	},
}

func init() {
	batchCmd.Flags().BoolVarP(&batchRecursive, "recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4, "number of concurrent workers")

	rootCmd.AddCommand(batchCmd)
}
