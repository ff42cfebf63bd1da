package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/extract"
	"github.com/joseph-ayodele/docclass/internal/repository"
)

const (
	metricsSheet   = "Metrics"
	confusionSheet = "Confusion Matrix"
	maxCellChars   = 32767
)

// Service produces XLSX bytes for stored results and evaluation reports.
type Service struct {
	results repository.ResultRepository
	logger  *slog.Logger
}

func NewService(results repository.ResultRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{results: results, logger: logger}
}

// ResultsXLSX returns a workbook with one sheet per label. Each sheet lists the
// extracted documents, one column per field in the label's stable key order.
// Only EXTRACTED rows carry fields; f.Status is forced accordingly.
func (s *Service) ResultsXLSX(ctx context.Context, f repository.ListFilter) ([]byte, error) {
	start := time.Now()
	f.Status = constants.JobStatusExtracted
	rows, err := s.results.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}

	byLabel := make(map[constants.Label][]*repository.DocumentResult)
	for _, r := range rows {
		byLabel[r.Label] = append(byLabel[r.Label], r)
	}

	wb := excelize.NewFile()
	defer func() {
		if err := wb.Close(); err != nil {
			s.logger.Warn("close workbook error", "error", err)
		}
	}()

	labels := constants.AllLabels
	if f.Label != "" {
		labels = []constants.Label{f.Label}
	}
	written := 0
	for i, label := range labels {
		sheet := string(label)
		if i == 0 {
			if err := wb.SetSheetName("Sheet1", sheet); err != nil {
				return nil, err
			}
		} else if _, err := wb.NewSheet(sheet); err != nil {
			return nil, err
		}
		n, err := s.writeLabelSheet(wb, sheet, label, byLabel[label])
		if err != nil {
			return nil, err
		}
		written += n
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.results.ok",
		"label", f.Label,
		"rows", written,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeLabelSheet(wb *excelize.File, sheet string, label constants.Label, rows []*repository.DocumentResult) (int, error) {
	empty, err := extract.Decode(label, []byte("{}"))
	if err != nil {
		return 0, err
	}
	headers := []string{"Source Path", "Content Hash", "Confidence", "Processed At"}
	for _, fd := range empty.Flatten() {
		headers = append(headers, columnName(fd))
	}
	if err := setRow(wb, sheet, 1, toAny(headers)); err != nil {
		return 0, err
	}

	line := 2
	for _, r := range rows {
		fields, err := extract.Decode(label, []byte(r.FieldsJSON))
		if err != nil {
			s.logger.Warn("skipping result with undecodable fields", "id", r.ID, "label", label, "error", err)
			continue
		}
		values := []any{r.SourcePath, r.ContentHash, r.Confidence, r.UpdatedAt.Format(time.RFC3339)}
		for _, fd := range fields.Flatten() {
			values = append(values, truncate(fd.Value, maxCellChars))
		}
		if err := setRow(wb, sheet, line, values); err != nil {
			return 0, err
		}
		line++
	}

	last, _ := excelize.ColumnNumberToName(len(headers))
	_ = wb.SetColWidth(sheet, "A", "A", 48) // path
	_ = wb.SetColWidth(sheet, "B", "B", 20) // hash
	_ = wb.SetColWidth(sheet, "C", "D", 14)
	if len(headers) > 4 {
		_ = wb.SetColWidth(sheet, "E", last, 24)
	}
	return line - 2, nil
}

// EvaluationXLSX renders a classifier report: per-label metrics with macro
// averages, and the confusion matrix with actual labels as rows.
func (s *Service) EvaluationXLSX(report classifier.Report) ([]byte, error) {
	wb := excelize.NewFile()
	defer func() {
		if err := wb.Close(); err != nil {
			s.logger.Warn("close workbook error", "error", err)
		}
	}()

	if err := wb.SetSheetName("Sheet1", metricsSheet); err != nil {
		return nil, err
	}
	if err := setRow(wb, metricsSheet, 1, []any{"Label", "Precision", "Recall", "F1", "Support"}); err != nil {
		return nil, err
	}
	line := 2
	for _, m := range report.PerLabel {
		if err := setRow(wb, metricsSheet, line, []any{string(m.Label), m.Precision, m.Recall, m.F1, m.Support}); err != nil {
			return nil, err
		}
		line++
	}
	summary := [][]any{
		{"Macro average", report.MacroPrecision, report.MacroRecall, report.MacroF1, report.Samples},
		{"Accuracy", report.Accuracy},
	}
	for _, vals := range summary {
		if err := setRow(wb, metricsSheet, line, vals); err != nil {
			return nil, err
		}
		line++
	}
	_ = wb.SetColWidth(metricsSheet, "A", "A", 18)

	if _, err := wb.NewSheet(confusionSheet); err != nil {
		return nil, err
	}
	header := []any{"actual \\ predicted"}
	for _, l := range report.Labels {
		header = append(header, string(l))
	}
	if err := setRow(wb, confusionSheet, 1, header); err != nil {
		return nil, err
	}
	for i, l := range report.Labels {
		vals := []any{string(l)}
		if i < len(report.Confusion) {
			for _, n := range report.Confusion[i] {
				vals = append(vals, n)
			}
		}
		if err := setRow(wb, confusionSheet, i+2, vals); err != nil {
			return nil, err
		}
	}
	_ = wb.SetColWidth(confusionSheet, "A", "A", 20)

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.evaluation.ok", "samples", report.Samples, "labels", len(report.Labels))
	return buf.Bytes(), nil
}

func setRow(wb *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return wb.SetSheetRow(sheet, cell, &values)
}

func columnName(f extract.Field) string {
	if f.Group == "" {
		return f.Name
	}
	return f.Group + " / " + f.Name
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
