package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
)

// LeadFilter captures lead search parameters. Converted leads are hidden unless IncludeConverted is set.
type LeadFilter struct {
	Page
	OwnerID          *int64
	Status           domain.LeadStatus
	IncludeConverted bool
}

// LeadRepository encapsulates lead persistence.
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	Update(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id int64) (*domain.Lead, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Lead, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter LeadFilter) ([]domain.Lead, int, error)
	// FindDuplicates only considers leads that have not been converted.
	FindDuplicates(ctx context.Context, q DuplicateQuery) ([]domain.Lead, error)
}

type leadRepository struct {
	db DBTX
}

// NewLeadRepository instantiates repository.
func NewLeadRepository(db DBTX) LeadRepository {
	return &leadRepository{db: db}
}

const leadColumns = `id, first_name, last_name, company, title, phone, email, status, score, region, source, description,
    owner_id, is_converted, converted_account_id, converted_contact_id, converted_opportunity_id, created_at, updated_at`

var leadSortColumns = map[string]string{
	"last_name":  "last_name",
	"company":    "company",
	"score":      "score",
	"status":     "status",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	const query = `
        INSERT INTO leads (first_name, last_name, company, title, phone, email, status, score, region, source, description, owner_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		lead.FirstName,
		lead.LastName,
		lead.Company,
		lead.Title,
		lead.Phone,
		lead.Email,
		lead.Status,
		lead.Score,
		lead.Region,
		lead.Source,
		lead.Description,
		lead.OwnerID,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
}

func (r *leadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	const query = `
        UPDATE leads SET first_name=$1, last_name=$2, company=$3, title=$4, phone=$5, email=$6, status=$7,
            score=$8, region=$9, source=$10, description=$11, owner_id=$12, is_converted=$13,
            converted_account_id=$14, converted_contact_id=$15, converted_opportunity_id=$16, updated_at=NOW()
        WHERE id=$17`
	return expectOne(r.db.Exec(ctx, query,
		lead.FirstName,
		lead.LastName,
		lead.Company,
		lead.Title,
		lead.Phone,
		lead.Email,
		lead.Status,
		lead.Score,
		lead.Region,
		lead.Source,
		lead.Description,
		lead.OwnerID,
		lead.IsConverted,
		lead.ConvertedAccountID,
		lead.ConvertedContactID,
		lead.ConvertedOpportunityID,
		lead.ID,
	))
}

func (r *leadRepository) GetByID(ctx context.Context, id int64) (*domain.Lead, error) {
	return r.fetchSingle(ctx, `SELECT `+leadColumns+` FROM leads WHERE id=$1`, id)
}

func (r *leadRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Lead, error) {
	return r.fetchSingle(ctx, `SELECT `+leadColumns+` FROM leads WHERE id=$1 FOR UPDATE`, id)
}

func (r *leadRepository) fetchSingle(ctx context.Context, query string, id int64) (*domain.Lead, error) {
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	leads, err := scanLeads(rows)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &leads[0], nil
}

func (r *leadRepository) Delete(ctx context.Context, id int64) error {
	return expectOne(r.db.Exec(ctx, `DELETE FROM leads WHERE id=$1`, id))
}

func (r *leadRepository) List(ctx context.Context, filter LeadFilter) ([]domain.Lead, int, error) {
	b := newFilterBuilder()
	if !filter.IncludeConverted {
		b.raw("is_converted = FALSE")
	}
	if filter.OwnerID != nil {
		b.eq("owner_id", *filter.OwnerID)
	}
	if filter.Status != "" {
		b.eq("status", filter.Status)
	}
	b.search(filter.Search, "first_name", "last_name", "company", "email")
	order := filter.orderBy(leadSortColumns, "created_at DESC")
	return listPage(ctx, r.db, "leads", leadColumns, b, order, filter.Page, scanLeads)
}

func (r *leadRepository) FindDuplicates(ctx context.Context, q DuplicateQuery) ([]domain.Lead, error) {
	b := newFilterBuilder()
	if !q.apply(b) {
		return nil, nil
	}
	b.raw("is_converted = FALSE")
	query := `SELECT ` + leadColumns + ` FROM leads WHERE ` + b.where() + ` ORDER BY id ` + limitClause(q.Limit)
	rows, err := r.db.Query(ctx, query, b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeads(rows)
}

func scanLeads(rows pgx.Rows) ([]domain.Lead, error) {
	var result []domain.Lead
	for rows.Next() {
		var lead domain.Lead
		if err := rows.Scan(
			&lead.ID,
			&lead.FirstName,
			&lead.LastName,
			&lead.Company,
			&lead.Title,
			&lead.Phone,
			&lead.Email,
			&lead.Status,
			&lead.Score,
			&lead.Region,
			&lead.Source,
			&lead.Description,
			&lead.OwnerID,
			&lead.IsConverted,
			&lead.ConvertedAccountID,
			&lead.ConvertedContactID,
			&lead.ConvertedOpportunityID,
			&lead.CreatedAt,
			&lead.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, lead)
	}
	return result, rows.Err()
}
