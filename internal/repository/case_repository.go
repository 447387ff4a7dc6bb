package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
)

// ErrCaseNumberExhausted is returned when no free case number was found.
var ErrCaseNumberExhausted = errors.New("could not allocate a unique case number")

const caseNumberAttempts = 5

// CaseFilter captures case search parameters.
type CaseFilter struct {
	Page
	OwnerID   *int64
	AccountID *int64
	Status    domain.CaseStatus
	Priority  domain.CasePriority
}

// CaseRepository encapsulates case persistence.
type CaseRepository interface {
	// Create assigns a case number when none is set and regenerates it on collision.
	Create(ctx context.Context, c *domain.Case) error
	Update(ctx context.Context, c *domain.Case) error
	GetByID(ctx context.Context, id int64) (*domain.Case, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Case, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter CaseFilter) ([]domain.Case, int, error)
	// ListOverdue locks and returns open, unescalated cases whose deadline is before now.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Case, error)
	CountOpenByPriority(ctx context.Context, ownerID *int64) (map[domain.CasePriority]int, error)
}

type caseRepository struct {
	db DBTX
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(db DBTX) CaseRepository {
	return &caseRepository{db: db}
}

const caseColumns = `id, case_number, subject, description, status, priority, account_id, contact_id, owner_id,
    is_escalated, escalated_at, sla_due_date, created_at, updated_at`

var caseSortColumns = map[string]string{
	"case_number":  "case_number",
	"subject":      "subject",
	"priority":     "priority",
	"status":       "status",
	"sla_due_date": "sla_due_date",
	"created_at":   "created_at",
	"updated_at":   "updated_at",
}

func (r *caseRepository) Create(ctx context.Context, c *domain.Case) error {
	const query = `
        INSERT INTO cases (case_number, subject, description, status, priority, account_id, contact_id, owner_id,
            is_escalated, escalated_at, sla_due_date, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (case_number) DO NOTHING
        RETURNING id, created_at, updated_at`

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	for attempt := 0; attempt < caseNumberAttempts; attempt++ {
		if c.CaseNumber == "" || attempt > 0 {
			c.CaseNumber = domain.NewCaseNumber()
		}
		err := r.db.QueryRow(ctx, query,
			c.CaseNumber,
			c.Subject,
			c.Description,
			c.Status,
			c.Priority,
			c.AccountID,
			c.ContactID,
			c.OwnerID,
			c.IsEscalated,
			c.EscalatedAt,
			c.SLADueDate,
			c.CreatedAt,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		return err
	}
	return ErrCaseNumberExhausted
}

func (r *caseRepository) Update(ctx context.Context, c *domain.Case) error {
	const query = `
        UPDATE cases SET subject=$1, description=$2, status=$3, priority=$4, account_id=$5, contact_id=$6,
            owner_id=$7, is_escalated=$8, escalated_at=$9, updated_at=NOW()
        WHERE id=$10`
	return expectOne(r.db.Exec(ctx, query,
		c.Subject,
		c.Description,
		c.Status,
		c.Priority,
		c.AccountID,
		c.ContactID,
		c.OwnerID,
		c.IsEscalated,
		c.EscalatedAt,
		c.ID,
	))
}

func (r *caseRepository) GetByID(ctx context.Context, id int64) (*domain.Case, error) {
	return r.fetchSingle(ctx, `SELECT `+caseColumns+` FROM cases WHERE id=$1`, id)
}

func (r *caseRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Case, error) {
	return r.fetchSingle(ctx, `SELECT `+caseColumns+` FROM cases WHERE id=$1 FOR UPDATE`, id)
}

func (r *caseRepository) fetchSingle(ctx context.Context, query string, id int64) (*domain.Case, error) {
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cases, err := scanCases(rows)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &cases[0], nil
}

func (r *caseRepository) Delete(ctx context.Context, id int64) error {
	return expectOne(r.db.Exec(ctx, `DELETE FROM cases WHERE id=$1`, id))
}

func (r *caseRepository) List(ctx context.Context, filter CaseFilter) ([]domain.Case, int, error) {
	b := newFilterBuilder()
	if filter.OwnerID != nil {
		b.eq("owner_id", *filter.OwnerID)
	}
	if filter.AccountID != nil {
		b.eq("account_id", *filter.AccountID)
	}
	if filter.Status != "" {
		b.eq("status", filter.Status)
	}
	if filter.Priority != "" {
		b.eq("priority", filter.Priority)
	}
	b.search(filter.Search, "case_number", "subject")
	order := filter.orderBy(caseSortColumns, "created_at DESC")
	return listPage(ctx, r.db, "cases", caseColumns, b, order, filter.Page, scanCases)
}

func (r *caseRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases
        WHERE is_escalated = FALSE AND status <> 'Closed' AND sla_due_date < $1
        ORDER BY sla_due_date, id
        FOR UPDATE`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func (r *caseRepository) CountOpenByPriority(ctx context.Context, ownerID *int64) (map[domain.CasePriority]int, error) {
	b := newFilterBuilder()
	b.raw("status <> 'Closed'")
	if ownerID != nil {
		b.eq("owner_id", *ownerID)
	}
	rows, err := r.db.Query(ctx, `SELECT priority, COUNT(*) FROM cases WHERE `+b.where()+` GROUP BY priority`, b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.CasePriority]int)
	for rows.Next() {
		var (
			priority domain.CasePriority
			count    int
		)
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, err
		}
		counts[priority] = count
	}
	return counts, rows.Err()
}

func scanCases(rows pgx.Rows) ([]domain.Case, error) {
	var result []domain.Case
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(
			&c.ID,
			&c.CaseNumber,
			&c.Subject,
			&c.Description,
			&c.Status,
			&c.Priority,
			&c.AccountID,
			&c.ContactID,
			&c.OwnerID,
			&c.IsEscalated,
			&c.EscalatedAt,
			&c.SLADueDate,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
