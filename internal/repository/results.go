package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/common"
)

const resultsTable = "document_results"

var resultColumns = []string{
	"id", "source_path", "content_hash", "label", "confidence",
	"status", "fields_json", "error_message", "created_at", "updated_at",
}

// DocumentResult is one processed document, keyed by the sha256 of its bytes.
type DocumentResult struct {
	ID           uuid.UUID           `json:"id" yaml:"id"`
	SourcePath   string              `json:"source_path" yaml:"source_path"`
	ContentHash  string              `json:"content_hash" yaml:"content_hash"`
	Label        constants.Label     `json:"label" yaml:"label"`
	Confidence   float64             `json:"confidence" yaml:"confidence"`
	Status       constants.JobStatus `json:"status" yaml:"status"`
	FieldsJSON   string              `json:"fields_json" yaml:"fields_json"`
	ErrorMessage string              `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	CreatedAt    time.Time           `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at" yaml:"updated_at"`
}

type ListFilter struct {
	Label  constants.Label
	Status constants.JobStatus
	Limit  int // 0 = no limit
	Offset int // applied only with a Limit
}

type ResultRepository interface {
	// UpsertByHash inserts r, or overwrites the row with the same content hash.
	// The returned bool reports whether a row already existed.
	UpsertByHash(ctx context.Context, r *DocumentResult) (*DocumentResult, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*DocumentResult, error)
	GetByHash(ctx context.Context, hash string) (*DocumentResult, error)
	List(ctx context.Context, f ListFilter) ([]*DocumentResult, error)
}

type resultRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewResultRepository(db *DB, logger *slog.Logger) ResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &resultRepo{db: db, logger: logger}
}

func (r *resultRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect)
}

func (r *resultRepo) GetByID(ctx context.Context, id uuid.UUID) (*DocumentResult, error) {
	return r.getOne(ctx, entsql.EQ("id", id.String()), "id", id.String())
}

func (r *resultRepo) GetByHash(ctx context.Context, hash string) (*DocumentResult, error) {
	return r.getOne(ctx, entsql.EQ("content_hash", hash), "content_hash", hash)
}

func (r *resultRepo) getOne(ctx context.Context, p *entsql.Predicate, key, value string) (*DocumentResult, error) {
	query, args := r.builder().
		Select(resultColumns...).
		From(entsql.Table(resultsTable)).
		Where(p).
		Limit(1).
		Query()
	rows, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to get document result", key, value, "error", err)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: document result %s=%s", common.ErrNotFound, key, value)
	}
	return rows[0], nil
}

func (r *resultRepo) List(ctx context.Context, f ListFilter) ([]*DocumentResult, error) {
	sel := r.builder().
		Select(resultColumns...).
		From(entsql.Table(resultsTable)).
		OrderBy("label", "created_at", "id")
	var preds []*entsql.Predicate
	if f.Label != "" {
		preds = append(preds, entsql.EQ("label", string(f.Label)))
	}
	if f.Status != "" {
		preds = append(preds, entsql.EQ("status", string(f.Status)))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	if f.Limit > 0 {
		sel = sel.Limit(f.Limit)
		if f.Offset > 0 {
			sel = sel.Offset(f.Offset)
		}
	}
	query, args := sel.Query()
	rows, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list document results", "label", f.Label, "status", f.Status, "error", err)
		return nil, err
	}
	return rows, nil
}

// Columns overwritten when a row with the same content hash already exists.
// id and created_at keep their first values.
var upsertColumns = []string{
	"source_path", "label", "confidence", "status", "fields_json", "error_message", "updated_at",
}

func (r *resultRepo) UpsertByHash(ctx context.Context, in *DocumentResult) (*DocumentResult, bool, error) {
	if in.ContentHash == "" {
		return nil, false, fmt.Errorf("%w: content hash is required", common.ErrInvalidInput)
	}
	now := time.Now().UTC()
	row := *in
	if row.FieldsJSON == "" {
		row.FieldsJSON = "{}"
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.CreatedAt, row.UpdatedAt = now, now

	query, args := r.builder().
		Insert(resultsTable).
		Columns(resultColumns...).
		Values(
			row.ID.String(), row.SourcePath, row.ContentHash, string(row.Label), row.Confidence,
			string(row.Status), row.FieldsJSON, row.ErrorMessage, formatTime(row.CreatedAt), formatTime(row.UpdatedAt),
		).
		OnConflict(
			entsql.ConflictColumns("content_hash"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range upsertColumns {
					u.SetExcluded(c)
				}
			}),
		).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to upsert document result", "content_hash", row.ContentHash, "source_path", row.SourcePath, "error", err)
		return nil, false, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}

	stored, err := r.GetByHash(ctx, row.ContentHash)
	if err != nil {
		return nil, false, err
	}
	return stored, stored.ID != row.ID, nil
}

func (r *resultRepo) query(ctx context.Context, query string, args []any) ([]*DocumentResult, error) {
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*DocumentResult
	for rows.Next() {
		var (
			res                  DocumentResult
			id, label, status    string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&id, &res.SourcePath, &res.ContentHash, &label, &res.Confidence,
			&status, &res.FieldsJSON, &res.ErrorMessage, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", common.ErrDatabase, err)
		}
		var err error
		if res.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: bad id %q: %w", common.ErrDatabase, id, err)
		}
		res.Label, res.Status = constants.Label(label), constants.JobStatus(status)
		if res.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if res.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}

// Timestamps are stored as fixed-width UTC text so they sort the same on both dialects.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q: %w", common.ErrDatabase, s, err)
	}
	return t, nil
}
