package service

import (
	"context"
	"strings"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// ContactFields carries contact attributes. Nil fields are left untouched on update.
type ContactFields struct {
	FirstName      *string
	LastName       *string
	AccountID      *int64
	Title          *string
	Phone          *string
	Email          *string
	MailingAddress *string
	OwnerID        *int64
}

func (f ContactFields) apply(c *domain.Contact) {
	setString(&c.FirstName, f.FirstName)
	setString(&c.LastName, f.LastName)
	setString(&c.Title, f.Title)
	setString(&c.Phone, f.Phone)
	setString(&c.Email, f.Email)
	setString(&c.MailingAddress, f.MailingAddress)
	if f.AccountID != nil {
		c.AccountID = f.AccountID
	}
	if f.OwnerID != nil {
		c.OwnerID = f.OwnerID
	}
}

// ContactListFilter narrows contact listings.
type ContactListFilter struct {
	PageRequest
	OwnerID   *int64
	AccountID *int64
}

// ContactService manages contacts.
type ContactService struct {
	deps Dependencies
}

// NewContactService creates the service.
func NewContactService(deps Dependencies) *ContactService {
	return &ContactService{deps: deps.withDefaults()}
}

// Create stores a new contact owned by the caller unless another owner is given.
func (s *ContactService) Create(ctx context.Context, fields ContactFields, actorID int64) (*domain.Contact, error) {
	contact := &domain.Contact{}
	fields.apply(contact)
	if strings.TrimSpace(contact.LastName) == "" {
		return nil, apperrors.NewValidationError("last_name is required", map[string]any{"field": "last_name"})
	}
	if contact.OwnerID == nil {
		contact.OwnerID = &actorID
	}
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if contact.AccountID != nil {
			if _, err := repos.Accounts.GetByID(ctx, *contact.AccountID); err != nil {
				return lookupError(err, "account", *contact.AccountID)
			}
		}
		if err := repos.Contacts.Create(ctx, contact); err != nil {
			return apperrors.MapError(err)
		}
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditCreate, "contacts", contact.ID, nil, contactValues(contact)))
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// Get returns a contact and records the view.
func (s *ContactService) Get(ctx context.Context, id, viewerID int64) (*domain.Contact, error) {
	contact, err := s.deps.Repos.Contacts.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "contact", id)
	}
	s.deps.touchRecent(ctx, viewerID, domain.RecordRef{Kind: domain.RecordKindContact, ID: id}, contact.FullName())
	return contact, nil
}

// Update applies the non-nil fields.
func (s *ContactService) Update(ctx context.Context, id int64, fields ContactFields, actorID int64) (*domain.Contact, error) {
	if fields.LastName != nil && strings.TrimSpace(*fields.LastName) == "" {
		return nil, apperrors.NewValidationError("last_name must not be empty", map[string]any{"field": "last_name"})
	}
	var updated *domain.Contact
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		contact, err := repos.Contacts.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "contact", id)
		}
		before := contactValues(contact)
		fields.apply(contact)
		if err := repos.Contacts.Update(ctx, contact); err != nil {
			return apperrors.MapError(err)
		}
		updated = contact
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditUpdate, "contacts", id, before, contactValues(contact)))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangeOwner reassigns the contact to an active user.
func (s *ContactService) ChangeOwner(ctx context.Context, id, ownerID, actorID int64) (*domain.Contact, error) {
	var updated *domain.Contact
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := ensureActiveUser(ctx, repos.Users, ownerID); err != nil {
			return err
		}
		contact, err := repos.Contacts.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "contact", id)
		}
		oldOwner := contact.OwnerID
		contact.OwnerID = &ownerID
		if err := repos.Contacts.Update(ctx, contact); err != nil {
			return apperrors.MapError(err)
		}
		updated = contact
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditChangeOwner, "contacts", id,
			map[string]any{"owner_id": oldOwner}, map[string]any{"owner_id": ownerID}))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a contact.
func (s *ContactService) Delete(ctx context.Context, id, actorID int64) error {
	return s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		contact, err := repos.Contacts.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "contact", id)
		}
		if err := repos.Contacts.Delete(ctx, id); err != nil {
			return lookupError(err, "contact", id)
		}
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditDelete, "contacts", id, contactValues(contact), nil))
	})
}

// List returns one page of contacts.
func (s *ContactService) List(ctx context.Context, filter ContactListFilter) (PageResult[domain.Contact], error) {
	items, total, err := s.deps.Repos.Contacts.List(ctx, repository.ContactFilter{
		Page:      filter.repoPage(),
		OwnerID:   filter.OwnerID,
		AccountID: filter.AccountID,
	})
	if err != nil {
		return PageResult[domain.Contact]{}, apperrors.MapError(err)
	}
	return newPageResult(items, total, filter.PageRequest), nil
}

func contactValues(c *domain.Contact) map[string]any {
	return map[string]any{
		"first_name":      c.FirstName,
		"last_name":       c.LastName,
		"account_id":      c.AccountID,
		"title":           c.Title,
		"phone":           c.Phone,
		"email":           c.Email,
		"mailing_address": c.MailingAddress,
		"owner_id":        c.OwnerID,
	}
}
