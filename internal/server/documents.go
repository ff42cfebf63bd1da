package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/common"
	"github.com/joseph-ayodele/docclass/internal/extract"
	"github.com/joseph-ayodele/docclass/internal/pipeline"
	"github.com/joseph-ayodele/docclass/internal/repository"
)

type DocumentService struct {
	proc     *pipeline.Processor
	results  repository.ResultRepository // nil disables GetResult
	timeout  time.Duration
	maxBytes int
	logger   *slog.Logger
}

var _ DocumentServiceServer = (*DocumentService)(nil)

func NewDocumentService(proc *pipeline.Processor, results repository.ResultRepository, cfg common.ServerConfig, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		proc:     proc,
		results:  results,
		timeout:  cfg.InferenceTimeout,
		maxBytes: cfg.MaxDocumentBytes,
		logger:   logger,
	}
}

func (s *DocumentService) Classify(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	data, err := s.document(req)
	if err != nil {
		return nil, err
	}
	r, err := withBudget(ctx, s.timeout, func(ctx context.Context) (classifier.Result, error) {
		return s.proc.Classify(ctx, bytes.NewReader(data))
	})
	if err != nil {
		s.logger.Warn("classify request failed", "request_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, common.ToStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"label":      string(r.Label),
		"confidence": r.Confidence,
	})
}

func (s *DocumentService) Extract(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	data, err := s.document(req)
	if err != nil {
		return nil, err
	}
	out, err := withBudget(ctx, s.timeout, func(ctx context.Context) (pipeline.Outcome, error) {
		return s.proc.Process(ctx, bytes.NewReader(data))
	})
	if err != nil {
		s.logger.Warn("extract request failed", "request_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, common.ToStatus(err)
	}
	fields, err := extract.AsMap(out.Fields)
	if err != nil {
		return nil, common.InternalErrorf("encode fields: %v", err)
	}
	return structpb.NewStruct(map[string]any{
		"label":      string(out.Label),
		"confidence": out.Confidence,
		"pages":      out.Pages,
		"fields":     fields,
	})
}

func (s *DocumentService) GetResult(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if s.results == nil {
		return nil, status.Error(codes.Unimplemented, "result store is not configured")
	}
	raw := strings.TrimSpace(req.GetValue())
	v := common.NewValidator()
	v.Field("id", raw, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	id := uuid.MustParse(raw)

	row, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	m := map[string]any{
		"id":           row.ID.String(),
		"source_path":  row.SourcePath,
		"content_hash": row.ContentHash,
		"label":        string(row.Label),
		"confidence":   row.Confidence,
		"status":       string(row.Status),
		"created_at":   row.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":   row.UpdatedAt.Format(time.RFC3339Nano),
	}
	if row.ErrorMessage != "" {
		m["error_message"] = row.ErrorMessage
	}
	if row.FieldsJSON != "" && row.FieldsJSON != "{}" {
		var fields map[string]any
		if err := json.Unmarshal([]byte(row.FieldsJSON), &fields); err != nil {
			return nil, common.InternalErrorf("decode stored fields: %v", err)
		}
		m["fields"] = fields
	}
	return structpb.NewStruct(m)
}

func (s *DocumentService) document(req *wrapperspb.BytesValue) ([]byte, error) {
	data := req.GetValue()
	if len(data) == 0 {
		return nil, common.InvalidArgumentError("document bytes are required")
	}
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return nil, common.InvalidArgumentErrorf("document is %d bytes, limit is %d", len(data), s.maxBytes)
	}
	return data, nil
}

// withBudget bounds fn by a wall-clock budget. fn sees the same deadline and
// is expected to stop at its next cancellation check; the caller does not wait for it.
func withBudget[T any](ctx context.Context, budget time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := common.WithTimeout(ctx, budget)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
