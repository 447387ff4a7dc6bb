package service

import (
	"context"
	"strings"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// AccountFields carries account attributes. Nil fields are left untouched on update.
type AccountFields struct {
	Name           *string
	Phone          *string
	Website        *string
	Industry       *string
	Description    *string
	BillingAddress *string
	OwnerID        *int64
}

func (f AccountFields) apply(a *domain.Account) {
	setString(&a.Name, f.Name)
	setString(&a.Phone, f.Phone)
	setString(&a.Website, f.Website)
	setString(&a.Industry, f.Industry)
	setString(&a.Description, f.Description)
	setString(&a.BillingAddress, f.BillingAddress)
	if f.OwnerID != nil {
		a.OwnerID = f.OwnerID
	}
}

// AccountListFilter narrows account listings.
type AccountListFilter struct {
	PageRequest
	OwnerID  *int64
	Industry string
}

// AccountService manages accounts.
type AccountService struct {
	deps Dependencies
}

// NewAccountService creates the service.
func NewAccountService(deps Dependencies) *AccountService {
	return &AccountService{deps: deps.withDefaults()}
}

// Create stores a new account owned by the caller unless another owner is given.
func (s *AccountService) Create(ctx context.Context, fields AccountFields, actorID int64) (*domain.Account, error) {
	account := &domain.Account{}
	fields.apply(account)
	if strings.TrimSpace(account.Name) == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if account.OwnerID == nil {
		account.OwnerID = &actorID
	}
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Accounts.Create(ctx, account); err != nil {
			return apperrors.MapError(err)
		}
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditCreate, "accounts", account.ID, nil, accountValues(account)))
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Get returns an account and records the view in the caller's recent records.
func (s *AccountService) Get(ctx context.Context, id, viewerID int64) (*domain.Account, error) {
	account, err := s.deps.Repos.Accounts.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "account", id)
	}
	s.deps.touchRecent(ctx, viewerID, domain.RecordRef{Kind: domain.RecordKindAccount, ID: id}, account.Name)
	return account, nil
}

// Update applies the non-nil fields.
func (s *AccountService) Update(ctx context.Context, id int64, fields AccountFields, actorID int64) (*domain.Account, error) {
	if fields.Name != nil && strings.TrimSpace(*fields.Name) == "" {
		return nil, apperrors.NewValidationError("name must not be empty", map[string]any{"field": "name"})
	}
	var updated *domain.Account
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		account, err := repos.Accounts.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "account", id)
		}
		before := accountValues(account)
		fields.apply(account)
		if err := repos.Accounts.Update(ctx, account); err != nil {
			return apperrors.MapError(err)
		}
		updated = account
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditUpdate, "accounts", id, before, accountValues(account)))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangeOwner reassigns the account to an active user.
func (s *AccountService) ChangeOwner(ctx context.Context, id, ownerID, actorID int64) (*domain.Account, error) {
	var updated *domain.Account
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := ensureActiveUser(ctx, repos.Users, ownerID); err != nil {
			return err
		}
		account, err := repos.Accounts.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "account", id)
		}
		oldOwner := account.OwnerID
		account.OwnerID = &ownerID
		if err := repos.Accounts.Update(ctx, account); err != nil {
			return apperrors.MapError(err)
		}
		updated = account
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditChangeOwner, "accounts", id,
			map[string]any{"owner_id": oldOwner}, map[string]any{"owner_id": ownerID}))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an account. Linked contacts, opportunities and cases keep existing unlinked.
func (s *AccountService) Delete(ctx context.Context, id, actorID int64) error {
	return s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		account, err := repos.Accounts.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "account", id)
		}
		if err := repos.Accounts.Delete(ctx, id); err != nil {
			return lookupError(err, "account", id)
		}
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditDelete, "accounts", id, accountValues(account), nil))
	})
}

// List returns one page of accounts.
func (s *AccountService) List(ctx context.Context, filter AccountListFilter) (PageResult[domain.Account], error) {
	items, total, err := s.deps.Repos.Accounts.List(ctx, repository.AccountFilter{
		Page:     filter.repoPage(),
		OwnerID:  filter.OwnerID,
		Industry: filter.Industry,
	})
	if err != nil {
		return PageResult[domain.Account]{}, apperrors.MapError(err)
	}
	return newPageResult(items, total, filter.PageRequest), nil
}

func accountValues(a *domain.Account) map[string]any {
	return map[string]any{
		"name":            a.Name,
		"phone":           a.Phone,
		"website":         a.Website,
		"industry":        a.Industry,
		"description":     a.Description,
		"billing_address": a.BillingAddress,
		"owner_id":        a.OwnerID,
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
