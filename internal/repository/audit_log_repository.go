package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
)

// AuditLogFilter narrows audit log listings.
type AuditLogFilter struct {
	Page
	UserID      *int64
	TargetTable string
	TargetID    *int64
}

// AuditLogRepository stores audit entries.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]domain.AuditLog, int, error)
}

type auditLogRepository struct {
	db DBTX
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(db DBTX) AuditLogRepository {
	return &auditLogRepository{db: db}
}

const auditLogColumns = `id, user_id, action, target_table, target_id, old_values, new_values, timestamp`

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	const query = `
        INSERT INTO audit_logs (user_id, action, target_table, target_id, old_values, new_values)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, timestamp`
	return r.db.QueryRow(ctx, query,
		entry.UserID,
		entry.Action,
		entry.TargetTable,
		entry.TargetID,
		entry.OldValues,
		entry.NewValues,
	).Scan(&entry.ID, &entry.Timestamp)
}

func (r *auditLogRepository) List(ctx context.Context, filter AuditLogFilter) ([]domain.AuditLog, int, error) {
	b := newFilterBuilder()
	if filter.UserID != nil {
		b.eq("user_id", *filter.UserID)
	}
	if filter.TargetTable != "" {
		b.eq("target_table", filter.TargetTable)
	}
	if filter.TargetID != nil {
		b.eq("target_id", *filter.TargetID)
	}
	return listPage(ctx, r.db, "audit_logs", auditLogColumns, b, "timestamp DESC, id DESC", filter.Page, scanAuditLogs)
}

func scanAuditLogs(rows pgx.Rows) ([]domain.AuditLog, error) {
	var result []domain.AuditLog
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Action,
			&entry.TargetTable,
			&entry.TargetID,
			&entry.OldValues,
			&entry.NewValues,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
