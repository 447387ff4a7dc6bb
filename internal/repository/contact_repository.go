package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
)

// ContactFilter captures contact search parameters.
type ContactFilter struct {
	Page
	OwnerID   *int64
	AccountID *int64
}

// DuplicateQuery matches records by email OR phone; empty values are not matched.
type DuplicateQuery struct {
	Email string
	Phone string
	Limit int
}

func (q DuplicateQuery) apply(b *filterBuilder) bool {
	var parts []string
	if q.Email != "" {
		b.args = append(b.args, q.Email)
		parts = append(parts, fmt.Sprintf("email=$%d", len(b.args)))
	}
	if q.Phone != "" {
		b.args = append(b.args, q.Phone)
		parts = append(parts, fmt.Sprintf("phone=$%d", len(b.args)))
	}
	if len(parts) == 0 {
		return false
	}
	b.raw("(" + strings.Join(parts, " OR ") + ")")
	return true
}

// ContactRepository encapsulates contact persistence.
type ContactRepository interface {
	Create(ctx context.Context, contact *domain.Contact) error
	Update(ctx context.Context, contact *domain.Contact) error
	GetByID(ctx context.Context, id int64) (*domain.Contact, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ContactFilter) ([]domain.Contact, int, error)
	FindDuplicates(ctx context.Context, q DuplicateQuery) ([]domain.Contact, error)
}

type contactRepository struct {
	db DBTX
}

// NewContactRepository instantiates repository.
func NewContactRepository(db DBTX) ContactRepository {
	return &contactRepository{db: db}
}

const contactColumns = `id, first_name, last_name, account_id, title, phone, email, mailing_address, owner_id, created_at, updated_at`

var contactSortColumns = map[string]string{
	"first_name": "first_name",
	"last_name":  "last_name",
	"email":      "email",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (r *contactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	const query = `
        INSERT INTO contacts (first_name, last_name, account_id, title, phone, email, mailing_address, owner_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		contact.FirstName,
		contact.LastName,
		contact.AccountID,
		contact.Title,
		contact.Phone,
		contact.Email,
		contact.MailingAddress,
		contact.OwnerID,
	).Scan(&contact.ID, &contact.CreatedAt, &contact.UpdatedAt)
}

func (r *contactRepository) Update(ctx context.Context, contact *domain.Contact) error {
	const query = `
        UPDATE contacts SET first_name=$1, last_name=$2, account_id=$3, title=$4, phone=$5, email=$6,
            mailing_address=$7, owner_id=$8, updated_at=NOW()
        WHERE id=$9`
	return expectOne(r.db.Exec(ctx, query,
		contact.FirstName,
		contact.LastName,
		contact.AccountID,
		contact.Title,
		contact.Phone,
		contact.Email,
		contact.MailingAddress,
		contact.OwnerID,
		contact.ID,
	))
}

func (r *contactRepository) GetByID(ctx context.Context, id int64) (*domain.Contact, error) {
	rows, err := r.db.Query(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	contacts, err := scanContacts(rows)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &contacts[0], nil
}

func (r *contactRepository) Delete(ctx context.Context, id int64) error {
	return expectOne(r.db.Exec(ctx, `DELETE FROM contacts WHERE id=$1`, id))
}

func (r *contactRepository) List(ctx context.Context, filter ContactFilter) ([]domain.Contact, int, error) {
	b := newFilterBuilder()
	if filter.OwnerID != nil {
		b.eq("owner_id", *filter.OwnerID)
	}
	if filter.AccountID != nil {
		b.eq("account_id", *filter.AccountID)
	}
	b.search(filter.Search, "first_name", "last_name", "email")
	order := filter.orderBy(contactSortColumns, "created_at DESC")
	return listPage(ctx, r.db, "contacts", contactColumns, b, order, filter.Page, scanContacts)
}

func (r *contactRepository) FindDuplicates(ctx context.Context, q DuplicateQuery) ([]domain.Contact, error) {
	b := newFilterBuilder()
	if !q.apply(b) {
		return nil, nil
	}
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE ` + b.where() + ` ORDER BY id ` + limitClause(q.Limit)
	rows, err := r.db.Query(ctx, query, b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContacts(rows)
}

func scanContacts(rows pgx.Rows) ([]domain.Contact, error) {
	var result []domain.Contact
	for rows.Next() {
		var contact domain.Contact
		if err := rows.Scan(
			&contact.ID,
			&contact.FirstName,
			&contact.LastName,
			&contact.AccountID,
			&contact.Title,
			&contact.Phone,
			&contact.Email,
			&contact.MailingAddress,
			&contact.OwnerID,
			&contact.CreatedAt,
			&contact.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, contact)
	}
	return result, rows.Err()
}
