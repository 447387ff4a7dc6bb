package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
)

// OpportunityFilter captures opportunity search parameters.
type OpportunityFilter struct {
	Page
	OwnerID   *int64
	AccountID *int64
	Stage     domain.OpportunityStage
}

// OpportunityRepository encapsulates opportunity persistence.
type OpportunityRepository interface {
	Create(ctx context.Context, opp *domain.Opportunity) error
	Update(ctx context.Context, opp *domain.Opportunity) error
	GetByID(ctx context.Context, id int64) (*domain.Opportunity, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter OpportunityFilter) ([]domain.Opportunity, int, error)
}

type opportunityRepository struct {
	db DBTX
}

// NewOpportunityRepository instantiates repository.
func NewOpportunityRepository(db DBTX) OpportunityRepository {
	return &opportunityRepository{db: db}
}

const opportunityColumns = `id, name, account_id, amount, stage, probability, close_date, description, owner_id, created_at, updated_at`

var opportunitySortColumns = map[string]string{
	"name":       "name",
	"amount":     "amount",
	"stage":      "stage",
	"close_date": "close_date",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (r *opportunityRepository) Create(ctx context.Context, opp *domain.Opportunity) error {
	const query = `
        INSERT INTO opportunities (name, account_id, amount, stage, probability, close_date, description, owner_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		opp.Name,
		opp.AccountID,
		opp.Amount,
		opp.Stage,
		opp.Probability,
		opp.CloseDate,
		opp.Description,
		opp.OwnerID,
	).Scan(&opp.ID, &opp.CreatedAt, &opp.UpdatedAt)
}

func (r *opportunityRepository) Update(ctx context.Context, opp *domain.Opportunity) error {
	const query = `
        UPDATE opportunities SET name=$1, account_id=$2, amount=$3, stage=$4, probability=$5, close_date=$6,
            description=$7, owner_id=$8, updated_at=NOW()
        WHERE id=$9`
	return expectOne(r.db.Exec(ctx, query,
		opp.Name,
		opp.AccountID,
		opp.Amount,
		opp.Stage,
		opp.Probability,
		opp.CloseDate,
		opp.Description,
		opp.OwnerID,
		opp.ID,
	))
}

func (r *opportunityRepository) GetByID(ctx context.Context, id int64) (*domain.Opportunity, error) {
	rows, err := r.db.Query(ctx, `SELECT `+opportunityColumns+` FROM opportunities WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	opps, err := scanOpportunities(rows)
	if err != nil {
		return nil, err
	}
	if len(opps) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &opps[0], nil
}

func (r *opportunityRepository) Delete(ctx context.Context, id int64) error {
	return expectOne(r.db.Exec(ctx, `DELETE FROM opportunities WHERE id=$1`, id))
}

func (r *opportunityRepository) List(ctx context.Context, filter OpportunityFilter) ([]domain.Opportunity, int, error) {
	b := newFilterBuilder()
	if filter.OwnerID != nil {
		b.eq("owner_id", *filter.OwnerID)
	}
	if filter.AccountID != nil {
		b.eq("account_id", *filter.AccountID)
	}
	if filter.Stage != "" {
		b.eq("stage", filter.Stage)
	}
	b.search(filter.Search, "name")
	order := filter.orderBy(opportunitySortColumns, "created_at DESC")
	return listPage(ctx, r.db, "opportunities", opportunityColumns, b, order, filter.Page, scanOpportunities)
}

func scanOpportunities(rows pgx.Rows) ([]domain.Opportunity, error) {
	var result []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		if err := rows.Scan(
			&opp.ID,
			&opp.Name,
			&opp.AccountID,
			&opp.Amount,
			&opp.Stage,
			&opp.Probability,
			&opp.CloseDate,
			&opp.Description,
			&opp.OwnerID,
			&opp.CreatedAt,
			&opp.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, opp)
	}
	return result, rows.Err()
}
