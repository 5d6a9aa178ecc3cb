package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

// SaveTrace persists a completed trace and all its spans.
func (r *Repository) SaveTrace(ctx context.Context, trace *domain.Trace) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO traces (id, name, status, conversation_id, persona_id, root_span_id,
		                    start_time, end_time, duration_ms, span_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status      = excluded.status,
			end_time    = excluded.end_time,
			duration_ms = excluded.duration_ms,
			span_count  = excluded.span_count`,
		string(trace.ID),
		trace.Name,
		string(trace.Status),
		trace.ConversationID,
		trace.PersonaID,
		string(trace.RootSpanID),
		trace.StartTime,
		trace.EndTime,
		trace.DurationMs,
		trace.SpanCount,
	)
	if err != nil {
		return fmt.Errorf("upsert trace: %w", err)
	}

	for _, span := range trace.Spans {
		attrJSON, _ := json.Marshal(span.Attributes)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO spans (id, trace_id, parent_id, name, kind, status,
			                   input, output, error, model, attributes, start_time, end_time, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				status      = excluded.status,
				output      = excluded.output,
				error       = excluded.error,
				end_time    = excluded.end_time,
				duration_ms = excluded.duration_ms`,
			string(span.ID),
			string(span.TraceID),
			string(span.ParentID),
			span.Name,
			string(span.Kind),
			string(span.Status),
			span.Input,
			span.Output,
			span.Error,
			span.Model,
			string(attrJSON),
			span.StartTime,
			span.EndTime,
			span.DurationMs,
		)
		if err != nil {
			return fmt.Errorf("upsert span %s: %w", span.ID, err)
		}
	}

	return tx.Commit()
}

// ListTraces returns summaries of the most recent traces (newest first).
func (r *Repository) ListTraces(ctx context.Context, limit int) ([]domain.TraceSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, status, start_time, duration_ms, span_count
		FROM traces
		ORDER BY start_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	out := []domain.TraceSummary{}
	for rows.Next() {
		var s domain.TraceSummary
		var id, statusStr string
		var durationMs *int64
		var spanCount *int
		if err := rows.Scan(&id, &s.Name, &statusStr, &s.StartTime, &durationMs, &spanCount); err != nil {
			return nil, err
		}
		s.ID = domain.TraceID(id)
		s.Status = domain.SpanStatus(statusStr)
		if durationMs != nil {
			s.DurationMs = *durationMs
		}
		if spanCount != nil {
			s.SpanCount = *spanCount
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetTrace returns a full trace with all its spans.
func (r *Repository) GetTrace(ctx context.Context, id domain.TraceID) (*domain.Trace, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, status, conversation_id, persona_id, root_span_id,
		       start_time, end_time, duration_ms, span_count
		FROM traces WHERE id = ?`, string(id))

	var t domain.Trace
	var idStr, statusStr string
	var convID, personaID, rootSpanID *string
	var endTime *time.Time
	var durationMs *int64
	var spanCount *int
	err := row.Scan(
		&idStr, &t.Name, &statusStr, &convID, &personaID, &rootSpanID,
		&t.StartTime, &endTime, &durationMs, &spanCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trace not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get trace: %w", err)
	}
	t.ID = domain.TraceID(idStr)
	t.Status = domain.SpanStatus(statusStr)
	t.EndTime = endTime
	if convID != nil {
		t.ConversationID = *convID
	}
	if personaID != nil {
		t.PersonaID = *personaID
	}
	if rootSpanID != nil {
		t.RootSpanID = domain.SpanID(*rootSpanID)
	}
	if durationMs != nil {
		t.DurationMs = *durationMs
	}
	if spanCount != nil {
		t.SpanCount = *spanCount
	}

	spans, err := r.loadSpansForTrace(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Spans = spans
	return &t, nil
}

func (r *Repository) loadSpansForTrace(ctx context.Context, traceID domain.TraceID) ([]domain.Span, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, trace_id, parent_id, name, kind, status,
		       input, output, error, model, attributes, start_time, end_time, duration_ms
		FROM spans WHERE trace_id = ?
		ORDER BY start_time ASC`, string(traceID))
	if err != nil {
		return nil, fmt.Errorf("load spans: %w", err)
	}
	defer rows.Close()

	var out []domain.Span
	for rows.Next() {
		var s domain.Span
		var id, traceIDStr, kindStr, statusStr string
		var parentID, input, output, errStr, model, attrJSON *string
		var endTime *time.Time
		var durationMs *int64
		err := rows.Scan(
			&id, &traceIDStr, &parentID,
			&s.Name, &kindStr, &statusStr,
			&input, &output, &errStr, &model,
			&attrJSON, &s.StartTime, &endTime, &durationMs,
		)
		if err != nil {
			return nil, err
		}
		s.ID = domain.SpanID(id)
		s.TraceID = domain.TraceID(traceIDStr)
		s.Kind = domain.SpanKind(kindStr)
		s.Status = domain.SpanStatus(statusStr)
		s.EndTime = endTime
		if parentID != nil {
			s.ParentID = domain.SpanID(*parentID)
		}
		if input != nil {
			s.Input = *input
		}
		if output != nil {
			s.Output = *output
		}
		if errStr != nil {
			s.Error = *errStr
		}
		if model != nil {
			s.Model = *model
		}
		if durationMs != nil {
			s.DurationMs = *durationMs
		}
		if attrJSON != nil && *attrJSON != "" && *attrJSON != "null" {
			_ = json.Unmarshal([]byte(*attrJSON), &s.Attributes)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
