package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Runner lets tests stub the external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		slog.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
	} else {
		slog.Debug("exec ok",
			"cmd", name,
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

type OCRConfig struct {
	Pdftoppm    string        // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract   string        // binary name or absolute path; if empty -> "tesseract"
	Lang        string        // tesseract language, default "por"
	DPI         int           // rasterization DPI, default 300
	TessdataDir string        // optional --tessdata-dir
	Timeout     time.Duration // whole-document budget, default 2m
}

// OCRBackend rasterizes every page with poppler's pdftoppm and reads it back
// with tesseract. It is the last resort for scanned documents without a text layer.
type OCRBackend struct {
	cfg    OCRConfig
	runner Runner
}

func NewOCRBackend(cfg OCRConfig) *OCRBackend {
	return newOCRBackend(cfg, execRunner{})
}

func newOCRBackend(cfg OCRConfig, r Runner) *OCRBackend {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "por"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &OCRBackend{cfg: cfg, runner: r}
}

func (*OCRBackend) Name() string { return BackendOCR }

// Open renders and recognizes all pages up front; tesseract output is
// kept in memory so the temp directory can go away before Open returns.
func (b *OCRBackend) Open(data []byte) (Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Timeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "docclass-ocr-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("failed to remove ocr temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	if _, errb, err := b.runner.Run(ctx, b.cfg.Pdftoppm, "-r", strconv.Itoa(b.cfg.DPI), "-png", in, prefix); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	images, _ := filepath.Glob(prefix + "-*.png")
	sortPageImages(images)
	if len(images) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}

	pages := make(pageList, 0, len(images))
	for _, img := range images {
		txt, err := b.recognize(ctx, img)
		if err != nil {
			return nil, err
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

var reBoxNoise = regexp.MustCompile(`[|¦]{2,}`)

func (b *OCRBackend) recognize(ctx context.Context, img string) (string, error) {
	// tesseract <file> stdout -l <lang>
	args := []string{img, "stdout", "-l", b.cfg.Lang}
	if b.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", b.cfg.TessdataDir)
	}
	out, errb, err := b.runner.Run(ctx, b.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w: %s", filepath.Base(img), err, truncate(string(errb), 512))
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}

// sortPageImages orders page-2.png before page-10.png. pdftoppm zero-pads
// only to the width of the page count, so lexical order is not enough.
func sortPageImages(paths []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		n, _ := strconv.Atoi(base[strings.LastIndex(base, "-")+1:])
		return n
	}
	sort.Slice(paths, func(i, j int) bool { return num(paths[i]) < num(paths[j]) })
}
