package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
)

// ActivityRepository stores the append-only activity log.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListByRecord(ctx context.Context, ref domain.RecordRef, limit, offset int) ([]domain.Activity, error)
}

type activityRepository struct {
	db DBTX
}

// NewActivityRepository builds repository.
func NewActivityRepository(db DBTX) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activities (record_type, record_id, activity_type, subject, details, created_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		activity.Record.Kind,
		activity.Record.ID,
		activity.Type,
		activity.Subject,
		activity.Details,
		activity.CreatedBy,
	).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *activityRepository) ListByRecord(ctx context.Context, ref domain.RecordRef, limit, offset int) ([]domain.Activity, error) {
	limit, offset = Page{Limit: limit, Offset: offset}.window()
	const query = `
        SELECT id, record_type, record_id, activity_type, subject, details, created_by, created_at
        FROM activities WHERE record_type=$1 AND record_id=$2
        ORDER BY created_at DESC, id DESC
        LIMIT $3 OFFSET $4`
	rows, err := r.db.Query(ctx, query, ref.Kind, ref.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

func scanActivities(rows pgx.Rows) ([]domain.Activity, error) {
	var result []domain.Activity
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.Record.Kind,
			&activity.Record.ID,
			&activity.Type,
			&activity.Subject,
			&activity.Details,
			&activity.CreatedBy,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
