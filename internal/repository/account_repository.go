package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
)

// AccountFilter captures account search parameters.
type AccountFilter struct {
	Page
	OwnerID  *int64
	Industry string
}

// AccountRepository encapsulates account persistence.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, int, error)
}

type accountRepository struct {
	db DBTX
}

// NewAccountRepository instantiates repository.
func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, name, phone, website, industry, description, billing_address, owner_id, created_at, updated_at`

var accountSortColumns = map[string]string{
	"name":       "name",
	"industry":   "industry",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (name, phone, website, industry, description, billing_address, owner_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		account.Name,
		account.Phone,
		account.Website,
		account.Industry,
		account.Description,
		account.BillingAddress,
		account.OwnerID,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts SET name=$1, phone=$2, website=$3, industry=$4, description=$5,
            billing_address=$6, owner_id=$7, updated_at=NOW()
        WHERE id=$8`
	return expectOne(r.db.Exec(ctx, query,
		account.Name,
		account.Phone,
		account.Website,
		account.Industry,
		account.Description,
		account.BillingAddress,
		account.OwnerID,
		account.ID,
	))
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts, err := scanAccounts(rows)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &accounts[0], nil
}

func (r *accountRepository) Delete(ctx context.Context, id int64) error {
	return expectOne(r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id))
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]domain.Account, int, error) {
	b := newFilterBuilder()
	if filter.OwnerID != nil {
		b.eq("owner_id", *filter.OwnerID)
	}
	if filter.Industry != "" {
		b.eq("industry", filter.Industry)
	}
	b.search(filter.Search, "name", "industry", "website")
	order := filter.orderBy(accountSortColumns, "created_at DESC")
	return listPage(ctx, r.db, "accounts", accountColumns, b, order, filter.Page, scanAccounts)
}

func scanAccounts(rows pgx.Rows) ([]domain.Account, error) {
	var result []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.ID,
			&account.Name,
			&account.Phone,
			&account.Website,
			&account.Industry,
			&account.Description,
			&account.BillingAddress,
			&account.OwnerID,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, account)
	}
	return result, rows.Err()
}
