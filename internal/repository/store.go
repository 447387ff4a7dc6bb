package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Repositories groups every entity repository bound to one connection or transaction.
type Repositories struct {
	Users         UserRepository
	Accounts      AccountRepository
	Contacts      ContactRepository
	Leads         LeadRepository
	Opportunities OpportunityRepository
	Cases         CaseRepository
	Activities    ActivityRepository
	RecentRecords RecentRecordRepository
	AuditLogs     AuditLogRepository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Accounts:      NewAccountRepository(db),
		Contacts:      NewContactRepository(db),
		Leads:         NewLeadRepository(db),
		Opportunities: NewOpportunityRepository(db),
		Cases:         NewCaseRepository(db),
		Activities:    NewActivityRepository(db),
		RecentRecords: NewRecentRecordRepository(db),
		AuditLogs:     NewAuditLogRepository(db),
	}
}

// Transactor runs fn against repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

type pgTransactor struct {
	db TxBeginner
}

// NewTransactor returns a Transactor backed by db.
func NewTransactor(db TxBeginner) Transactor {
	return &pgTransactor{db: db}
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(Repositories) error) (err error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if err = fn(NewRepositories(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
