package core

import (
	"context"
	"fmt"

	db "github.com/JonMunkholm/releaseboard/internal/database"
	"github.com/jackc/pgx/v5/pgtype"
)

// PostgresAuditLog persists audit entries to the release_audit_log table.
type PostgresAuditLog struct {
	q *db.Queries
}

// NewPostgresAuditLog wraps a pool or transaction. Call Ensure once at
// startup to create the table.
func NewPostgresAuditLog(conn db.DBTX) *PostgresAuditLog {
	return &PostgresAuditLog{q: db.New(conn)}
}

// Ensure creates the audit table if it does not exist.
func (p *PostgresAuditLog) Ensure(ctx context.Context) error {
	if err := p.q.EnsureReleaseAuditLog(ctx); err != nil {
		return fmt.Errorf("ensure release_audit_log: %w", err)
	}
	return nil
}

// Record inserts one entry.
func (p *PostgresAuditLog) Record(ctx context.Context, entry AuditEntry) error {
	_, err := p.q.InsertReleaseAuditLog(ctx, db.InsertReleaseAuditLogParams{
		ID:           ToPgUUID(entry.ID),
		Action:       string(entry.Action),
		Severity:     string(entry.Severity),
		BatchID:      ToPgUUID(entry.BatchID),
		RowKey:       ToPgText(entry.RowKey),
		ColumnName:   ToPgText(entry.ColumnName),
		NewValue:     ToPgText(entry.NewValue),
		RowsAffected: ToPgInt4(entry.RowsAffected),
		IpAddress:    ToPgText(entry.IPAddress),
		UserAgent:    ToPgText(entry.UserAgent),
		CreatedAt:    pgtype.Timestamptz{Time: entry.CreatedAt, Valid: !entry.CreatedAt.IsZero()},
	})
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (p *PostgresAuditLog) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := p.q.ListRecentReleaseAuditLogs(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, dbAuditLogToEntry(row))
	}
	return entries, nil
}

func dbAuditLogToEntry(row db.ReleaseAuditLog) AuditEntry {
	entry := AuditEntry{
		ID:        PgUUIDToString(row.ID),
		Action:    AuditAction(row.Action),
		Severity:  AuditSeverity(row.Severity),
		BatchID:   PgUUIDToString(row.BatchID),
		CreatedAt: row.CreatedAt.Time,
	}
	if row.RowKey.Valid {
		entry.RowKey = row.RowKey.String
	}
	if row.ColumnName.Valid {
		entry.ColumnName = row.ColumnName.String
	}
	if row.NewValue.Valid {
		entry.NewValue = row.NewValue.String
	}
	if row.RowsAffected.Valid {
		entry.RowsAffected = int(row.RowsAffected.Int32)
	}
	if row.IpAddress.Valid {
		entry.IPAddress = row.IpAddress.String
	}
	if row.UserAgent.Valid {
		entry.UserAgent = row.UserAgent.String
	}
	return entry
}
