package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Service provides the release table operations behind the HTTP API.
type Service struct {
	store    *Store
	editable map[string]bool
	audit    AuditLog
}

// Option configures a Service.
type Option func(*Service)

// WithEditableFields restricts PatchField to the named fields. Blank names
// are ignored; an empty list leaves every field editable.
func WithEditableFields(fields []string) Option {
	return func(s *Service) {
		for _, f := range fields {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			if s.editable == nil {
				s.editable = make(map[string]bool)
			}
			s.editable[f] = true
		}
	}
}

// WithAuditLog records every mutation to log.
func WithAuditLog(log AuditLog) Option {
	return func(s *Service) {
		s.audit = log
	}
}

// NewService creates a Service over store. A nil store gets a fresh one.
func NewService(store *Store, opts ...Option) *Service {
	if store == nil {
		store = NewStore()
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.audit == nil {
		s.audit = NewMemoryAuditLog(0)
	}
	return s
}

// IngestResult reports a completed batch replace.
type IngestResult struct {
	BatchID string `json:"batch_id"`
	Rows    int    `json:"rows"`
}

// Ingest replaces the stored batch with rows. The store is untouched unless
// every row was annotated successfully.
func (s *Service) Ingest(ctx context.Context, rows []*Row) (IngestResult, error) {
	n, err := s.store.Replace(rows)
	if err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{BatchID: uuid.NewString(), Rows: n}

	entry := newAuditEntry(ctx, ActionIngest)
	entry.BatchID = result.BatchID
	entry.RowsAffected = n
	s.logAudit(ctx, entry)

	return result, nil
}

// Rows returns a copy of the current batch.
func (s *Service) Rows() []*Row {
	return s.store.Snapshot()
}

// IDs returns every stored identifier in order.
func (s *Service) IDs() []string {
	return s.store.IDs()
}

// Row resolves id to a single row.
func (s *Service) Row(id string) (*Row, error) {
	return s.store.Get(id)
}

// RowCount returns the number of stored rows.
func (s *Service) RowCount() int {
	return s.store.Len()
}

// EditableFields returns the allow-list in sorted order, or nil when every
// field is editable.
func (s *Service) EditableFields() []string {
	if len(s.editable) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.editable))
	for f := range s.editable {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// PatchField sets one field on the row resolved from id.
func (s *Service) PatchField(ctx context.Context, id, field string, value any) (PatchResult, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return PatchResult{}, &ValidationError{Message: "missing 'field'"}
	}
	if len(s.editable) > 0 && !s.editable[field] {
		return PatchResult{}, &ValidationError{Message: fmt.Sprintf("field '%s'", field), Err: ErrNotEditable}
	}

	result, err := s.store.SetField(id, field, value)
	if err != nil {
		return PatchResult{}, err
	}

	entry := newAuditEntry(ctx, ActionCellEdit)
	entry.RowKey = result.ID
	entry.ColumnName = result.Field
	entry.NewValue = Stringify(result.Value)
	entry.RowsAffected = 1
	s.logAudit(ctx, entry)

	return result, nil
}

// RebuildIDs reassigns fallback identifiers on every stored row.
func (s *Service) RebuildIDs(ctx context.Context) int {
	n := s.store.RebuildIDs()

	entry := newAuditEntry(ctx, ActionRebuildIDs)
	entry.RowsAffected = n
	s.logAudit(ctx, entry)

	return n
}

// AuditLog returns the most recent audit entries, newest first.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]AuditEntry, error) {
	return s.audit.Recent(ctx, limit)
}

// logAudit records entry. Audit failures never fail the mutation.
func (s *Service) logAudit(ctx context.Context, entry AuditEntry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		slog.Warn("audit log failed",
			"action", entry.Action,
			"row_key", entry.RowKey,
			"error", err,
		)
	}
}
