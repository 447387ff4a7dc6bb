package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner can open transactions.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Page carries search, sort and pagination for list queries.
type Page struct {
	Search    string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

func (p Page) window() (int, int) {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// orderBy resolves SortBy against a whitelist of columns, falling back to fallback.
func (p Page) orderBy(allowed map[string]string, fallback string) string {
	column, ok := allowed[p.SortBy]
	if !ok {
		return fallback
	}
	direction := "DESC"
	if strings.EqualFold(p.SortOrder, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

// filterBuilder accumulates WHERE clauses with positional args.
type filterBuilder struct {
	clauses []string
	args    []any
}

func newFilterBuilder() *filterBuilder {
	return &filterBuilder{clauses: []string{"1=1"}}
}

func (b *filterBuilder) eq(column string, value any) {
	b.args = append(b.args, value)
	b.clauses = append(b.clauses, fmt.Sprintf("%s=$%d", column, len(b.args)))
}

func (b *filterBuilder) raw(clause string) {
	b.clauses = append(b.clauses, clause)
}

// search adds a case-insensitive substring match across columns.
func (b *filterBuilder) search(term string, columns ...string) {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return
	}
	b.args = append(b.args, "%"+term+"%")
	placeholder := fmt.Sprintf("$%d", len(b.args))
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE %s", column, placeholder)
	}
	b.clauses = append(b.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (b *filterBuilder) where() string {
	return strings.Join(b.clauses, " AND ")
}

// listPage runs the count and page queries for a filtered table.
func listPage[T any](ctx context.Context, db DBTX, table, columns string, b *filterBuilder, order string, page Page, scan func(pgx.Rows) ([]T, error)) ([]T, int, error) {
	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, b.where())
	if err := db.QueryRow(ctx, countQuery, b.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := page.window()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT %d OFFSET %d",
		columns, table, b.where(), order, limit, offset)
	rows, err := db.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := scan(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf("LIMIT %d", limit)
}

func expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
