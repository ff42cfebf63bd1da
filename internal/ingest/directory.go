package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

type ScanOptions struct {
	Exts       map[string]struct{} // lowercased sans '.'; nil -> constants.AllowedExtensions
	SkipHidden bool
	Recursive  bool
}

// ScanDirectory walks root and returns the matching files in lexical order.
// Unreadable entries are logged and counted, not fatal.
func ScanDirectory(ctx context.Context, root string, opts ScanOptions, logger *slog.Logger) ([]string, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			if walkErr != nil {
				return walkErr
			}
			return nil
		}
		stats.Scanned++
		if walkErr != nil {
			logger.Warn("scan entry failed", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if opts.SkipHidden && IsHidden(path) {
			stats.Hidden++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !allowed(path, opts.Exts) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, stats, nil
}
