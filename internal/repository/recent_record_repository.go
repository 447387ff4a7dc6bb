package repository

import (
	"context"

	"github.com/spec-kit/crm-service/internal/domain"
)

// RecentRecordRepository tracks what each user opened last.
type RecentRecordRepository interface {
	// Touch upserts the entry and trims the user's list to domain.RecentRecordsPerUser.
	Touch(ctx context.Context, record *domain.RecentRecord) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.RecentRecord, error)
}

type recentRecordRepository struct {
	db DBTX
}

// NewRecentRecordRepository builds repository.
func NewRecentRecordRepository(db DBTX) RecentRecordRepository {
	return &recentRecordRepository{db: db}
}

func (r *recentRecordRepository) Touch(ctx context.Context, record *domain.RecentRecord) error {
	const upsert = `
        INSERT INTO recent_records (user_id, record_type, record_id, record_name, accessed_at)
        VALUES ($1,$2,$3,$4,NOW())
        ON CONFLICT (user_id, record_type, record_id)
        DO UPDATE SET record_name=EXCLUDED.record_name, accessed_at=EXCLUDED.accessed_at
        RETURNING id, accessed_at`
	if err := r.db.QueryRow(ctx, upsert,
		record.UserID,
		record.Record.Kind,
		record.Record.ID,
		record.RecordName,
	).Scan(&record.ID, &record.AccessedAt); err != nil {
		return err
	}

	const trim = `
        DELETE FROM recent_records WHERE user_id=$1 AND id NOT IN (
            SELECT id FROM recent_records WHERE user_id=$1 ORDER BY accessed_at DESC, id DESC LIMIT $2)`
	_, err := r.db.Exec(ctx, trim, record.UserID, domain.RecentRecordsPerUser)
	return err
}

func (r *recentRecordRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.RecentRecord, error) {
	if limit <= 0 || limit > domain.RecentRecordsPerUser {
		limit = domain.RecentRecordsPerUser
	}
	const query = `
        SELECT id, user_id, record_type, record_id, record_name, accessed_at
        FROM recent_records WHERE user_id=$1
        ORDER BY accessed_at DESC, id DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RecentRecord
	for rows.Next() {
		var rec domain.RecentRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Record.Kind,
			&rec.Record.ID,
			&rec.RecordName,
			&rec.AccessedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
