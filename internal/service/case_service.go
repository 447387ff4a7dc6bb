package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// CaseFields carries case attributes. Nil fields are left untouched on update.
// The case number and SLA deadline are never taken from input.
type CaseFields struct {
	Subject     *string
	Description *string
	Status      *domain.CaseStatus
	Priority    *domain.CasePriority
	AccountID   *int64
	ContactID   *int64
	OwnerID     *int64
}

func (f CaseFields) apply(c *domain.Case) {
	setString(&c.Subject, f.Subject)
	setString(&c.Description, f.Description)
	if f.Status != nil {
		c.Status = *f.Status
	}
	if f.Priority != nil {
		c.Priority = *f.Priority
	}
	if f.AccountID != nil {
		c.AccountID = f.AccountID
	}
	if f.ContactID != nil {
		c.ContactID = f.ContactID
	}
	if f.OwnerID != nil {
		c.OwnerID = f.OwnerID
	}
}

// CaseListFilter narrows case listings.
type CaseListFilter struct {
	PageRequest
	OwnerID   *int64
	AccountID *int64
	Status    domain.CaseStatus
	Priority  domain.CasePriority
}

// CaseService manages cases.
type CaseService struct {
	deps Dependencies
}

// NewCaseService creates the service.
func NewCaseService(deps Dependencies) *CaseService {
	return &CaseService{deps: deps.withDefaults()}
}

// Create opens a case. The SLA deadline is fixed from the priority at creation time and the
// store assigns a unique case number. With autoAssign set, an unowned case is routed through
// the assignment engine.
func (s *CaseService) Create(ctx context.Context, fields CaseFields, autoAssign bool, actorID int64) (*domain.Case, error) {
	c := &domain.Case{Status: domain.CaseStatusNew, Priority: domain.CasePriorityMedium}
	fields.apply(c)
	if strings.TrimSpace(c.Subject) == "" {
		return nil, apperrors.NewValidationError("subject is required", map[string]any{"field": "subject"})
	}
	c.CreatedAt = s.deps.Clock()
	c.SLADueDate = domain.ComputeSLADue(c.Priority, c.CreatedAt)

	var rule string
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Cases.Create(ctx, c); err != nil {
			return apperrors.MapError(err)
		}
		if autoAssign && c.OwnerID == nil {
			owner, assigned, ok, err := autoAssignOwner(ctx, repos.Users, c)
			if err != nil {
				return err
			}
			if ok {
				c.OwnerID = &owner
				if err := repos.Cases.Update(ctx, c); err != nil {
					return apperrors.MapError(err)
				}
				rule = assigned
			}
		}
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditCreate, "cases", c.ID, nil, caseValues(c)))
	})
	if err != nil {
		return nil, err
	}

	ref := domain.CaseRef(c.ID)
	s.deps.publish(ctx, events.EventCaseCreated, ref, &actorID, events.CaseCreatedPayload{
		CaseNumber: c.CaseNumber,
		Priority:   c.Priority,
		SLADueDate: c.SLADueDate,
	})
	if rule != "" {
		s.deps.Metrics.RecordAssignment(domain.RecordKindCase, rule)
		s.deps.Logger.Info("case auto-assigned",
			zap.Int64("case_id", c.ID),
			zap.Int64p("owner_id", c.OwnerID),
			zap.String("rule", rule))
		s.deps.publish(ctx, events.EventCaseAssigned, ref, &actorID, events.AssignedPayload{OwnerID: *c.OwnerID, Rule: rule})
	}
	return c, nil
}

// Get returns a case and records the view.
func (s *CaseService) Get(ctx context.Context, id, viewerID int64) (*domain.Case, error) {
	c, err := s.deps.Repos.Cases.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "case", id)
	}
	s.deps.touchRecent(ctx, viewerID, domain.CaseRef(id), caseDisplayName(c))
	return c, nil
}

// Update applies the non-nil fields. Changing the priority does not move the SLA deadline.
func (s *CaseService) Update(ctx context.Context, id int64, fields CaseFields, actorID int64) (*domain.Case, error) {
	if fields.Subject != nil && strings.TrimSpace(*fields.Subject) == "" {
		return nil, apperrors.NewValidationError("subject must not be empty", map[string]any{"field": "subject"})
	}
	return s.modify(ctx, id, actorID, domain.AuditUpdate, fields.apply)
}

// ChangeOwner reassigns the case to an active user.
func (s *CaseService) ChangeOwner(ctx context.Context, id, ownerID, actorID int64) (*domain.Case, error) {
	if err := ensureActiveUser(ctx, s.deps.Repos.Users, ownerID); err != nil {
		return nil, err
	}
	return s.modify(ctx, id, actorID, domain.AuditChangeOwner, func(c *domain.Case) {
		c.OwnerID = &ownerID
	})
}

func (s *CaseService) modify(ctx context.Context, id, actorID int64, action domain.AuditAction, change func(*domain.Case)) (*domain.Case, error) {
	var updated *domain.Case
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		c, err := repos.Cases.GetByIDForUpdate(ctx, id)
		if err != nil {
			return lookupError(err, "case", id)
		}
		before := caseValues(c)
		change(c)
		if err := repos.Cases.Update(ctx, c); err != nil {
			return apperrors.MapError(err)
		}
		updated = c
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, action, "cases", id, before, caseValues(c)))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a case.
func (s *CaseService) Delete(ctx context.Context, id, actorID int64) error {
	return s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		c, err := repos.Cases.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "case", id)
		}
		if err := repos.Cases.Delete(ctx, id); err != nil {
			return lookupError(err, "case", id)
		}
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditDelete, "cases", id, caseValues(c), nil))
	})
}

// List returns one page of cases.
func (s *CaseService) List(ctx context.Context, filter CaseListFilter) (PageResult[domain.Case], error) {
	items, total, err := s.deps.Repos.Cases.List(ctx, repository.CaseFilter{
		Page:      filter.repoPage(),
		OwnerID:   filter.OwnerID,
		AccountID: filter.AccountID,
		Status:    filter.Status,
		Priority:  filter.Priority,
	})
	if err != nil {
		return PageResult[domain.Case]{}, apperrors.MapError(err)
	}
	return newPageResult(items, total, filter.PageRequest), nil
}

// CountOpenByPriority counts non-closed cases per priority, optionally for one owner.
func (s *CaseService) CountOpenByPriority(ctx context.Context, ownerID *int64) (map[domain.CasePriority]int, error) {
	counts, err := s.deps.Repos.Cases.CountOpenByPriority(ctx, ownerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return counts, nil
}

func caseValues(c *domain.Case) map[string]any {
	return map[string]any{
		"case_number":  c.CaseNumber,
		"subject":      c.Subject,
		"description":  c.Description,
		"status":       c.Status,
		"priority":     c.Priority,
		"account_id":   c.AccountID,
		"contact_id":   c.ContactID,
		"owner_id":     c.OwnerID,
		"is_escalated": c.IsEscalated,
		"sla_due_date": c.SLADueDate,
	}
}
