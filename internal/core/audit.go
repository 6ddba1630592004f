package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionIngest     AuditAction = "ingest"
	ActionCellEdit   AuditAction = "cell_edit"
	ActionRebuildIDs AuditAction = "rebuild_ids"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string        `json:"id"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	BatchID      string        `json:"batchId,omitempty"`
	RowKey       string        `json:"rowKey,omitempty"`
	ColumnName   string        `json:"columnName,omitempty"`
	NewValue     string        `json:"newValue,omitempty"`
	RowsAffected int           `json:"rowsAffected,omitempty"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// AuditLog records mutations of the row store. Implementations must be safe
// for concurrent use.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
}

// determineSeverity returns the appropriate severity for an action.
// Replacing the whole batch is the most destructive thing the API does.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionIngest:
		return SeverityCritical
	case ActionRebuildIDs:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// newAuditEntry fills id, severity, timestamp and request metadata.
func newAuditEntry(ctx context.Context, action AuditAction) AuditEntry {
	return AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		Severity:  determineSeverity(action),
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}
}

const (
	// DefaultMemoryAuditSize is how many entries MemoryAuditLog keeps.
	DefaultMemoryAuditSize = 500

	// DefaultHistoryLimit is how many entries Recent returns when no limit is given.
	DefaultHistoryLimit = 100
)

// MemoryAuditLog keeps the most recent entries in a bounded ring.
// Used when no database is configured.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	size    int
}

// NewMemoryAuditLog creates a ring of the given size (DefaultMemoryAuditSize if <= 0).
func NewMemoryAuditLog(size int) *MemoryAuditLog {
	if size <= 0 {
		size = DefaultMemoryAuditSize
	}
	return &MemoryAuditLog{size: size}
}

// Record appends an entry, evicting the oldest when full.
func (m *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	if len(m.entries) > m.size {
		m.entries = m.entries[len(m.entries)-m.size:]
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *MemoryAuditLog) Recent(_ context.Context, limit int) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]AuditEntry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}
