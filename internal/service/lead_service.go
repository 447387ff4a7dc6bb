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

// LeadFields carries lead attributes. Nil fields are left untouched on update.
type LeadFields struct {
	FirstName   *string
	LastName    *string
	Company     *string
	Title       *string
	Phone       *string
	Email       *string
	Status      *domain.LeadStatus
	Score       *int
	Region      *string
	Source      *string
	Description *string
	OwnerID     *int64
}

func (f LeadFields) apply(l *domain.Lead) {
	setString(&l.FirstName, f.FirstName)
	setString(&l.LastName, f.LastName)
	setString(&l.Company, f.Company)
	setString(&l.Title, f.Title)
	setString(&l.Phone, f.Phone)
	setString(&l.Email, f.Email)
	setString(&l.Region, f.Region)
	setString(&l.Source, f.Source)
	setString(&l.Description, f.Description)
	if f.Status != nil {
		l.Status = *f.Status
	}
	if f.Score != nil {
		l.Score = *f.Score
	}
	if f.OwnerID != nil {
		l.OwnerID = f.OwnerID
	}
}

// LeadCreateOptions toggles the checks run around lead creation.
type LeadCreateOptions struct {
	CheckDuplicates bool
	AutoAssign      bool
}

// LeadListFilter narrows lead listings.
type LeadListFilter struct {
	PageRequest
	OwnerID          *int64
	Status           domain.LeadStatus
	IncludeConverted bool
}

// LeadService manages leads.
type LeadService struct {
	deps       Dependencies
	duplicates *DuplicateDetector
}

// NewLeadService creates the service.
func NewLeadService(deps Dependencies) *LeadService {
	deps = deps.withDefaults()
	return &LeadService{deps: deps, duplicates: NewDuplicateDetector(deps.Repos)}
}

// Create stores a new lead. With CheckDuplicates set, a lead sharing an email or phone with an
// open lead is rejected with Conflict. With AutoAssign set, an unowned lead is routed through
// the assignment engine.
func (s *LeadService) Create(ctx context.Context, fields LeadFields, opts LeadCreateOptions, actorID int64) (*domain.Lead, error) {
	lead := &domain.Lead{Status: domain.LeadStatusNew}
	fields.apply(lead)
	if strings.TrimSpace(lead.LastName) == "" {
		return nil, apperrors.NewValidationError("last_name is required", map[string]any{"field": "last_name"})
	}
	if lead.Status == domain.LeadStatusConverted {
		return nil, apperrors.NewValidationError("leads are converted through the conversion workflow", map[string]any{"field": "status"})
	}

	if opts.CheckDuplicates && (lead.Email != "" || lead.Phone != "") {
		warning, err := s.duplicates.CheckDuplicates(ctx, domain.RecordKindLead, lead.Email, lead.Phone)
		if err != nil {
			return nil, err
		}
		if warning.HasMatches() {
			return nil, apperrors.NewConflict("potential duplicates found", map[string]any{"duplicates": warning})
		}
	}

	var rule string
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Leads.Create(ctx, lead); err != nil {
			return apperrors.MapError(err)
		}
		if opts.AutoAssign && lead.OwnerID == nil {
			owner, assigned, ok, err := autoAssignOwner(ctx, repos.Users, lead)
			if err != nil {
				return err
			}
			if ok {
				lead.OwnerID = &owner
				if err := repos.Leads.Update(ctx, lead); err != nil {
					return apperrors.MapError(err)
				}
				rule = assigned
			}
		}
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditCreate, "leads", lead.ID, nil, leadValues(lead)))
	})
	if err != nil {
		return nil, err
	}

	ref := domain.LeadRef(lead.ID)
	s.deps.publish(ctx, events.EventLeadCreated, ref, &actorID, events.LeadCreatedPayload{Score: lead.Score, Company: lead.Company})
	if rule != "" {
		s.deps.Metrics.RecordAssignment(domain.RecordKindLead, rule)
		s.deps.Logger.Info("lead auto-assigned",
			zap.Int64("lead_id", lead.ID),
			zap.Int64p("owner_id", lead.OwnerID),
			zap.String("rule", rule))
		s.deps.publish(ctx, events.EventLeadAssigned, ref, &actorID, events.AssignedPayload{OwnerID: *lead.OwnerID, Rule: rule})
	}
	return lead, nil
}

// Get returns a lead and records the view.
func (s *LeadService) Get(ctx context.Context, id, viewerID int64) (*domain.Lead, error) {
	lead, err := s.deps.Repos.Leads.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "lead", id)
	}
	s.deps.touchRecent(ctx, viewerID, domain.LeadRef(id), lead.FullName())
	return lead, nil
}

// Update applies the non-nil fields. Converted leads are read-only.
func (s *LeadService) Update(ctx context.Context, id int64, fields LeadFields, actorID int64) (*domain.Lead, error) {
	if fields.LastName != nil && strings.TrimSpace(*fields.LastName) == "" {
		return nil, apperrors.NewValidationError("last_name must not be empty", map[string]any{"field": "last_name"})
	}
	if fields.Status != nil && *fields.Status == domain.LeadStatusConverted {
		return nil, apperrors.NewValidationError("leads are converted through the conversion workflow", map[string]any{"field": "status"})
	}
	var updated *domain.Lead
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		lead, err := repos.Leads.GetByIDForUpdate(ctx, id)
		if err != nil {
			return lookupError(err, "lead", id)
		}
		if lead.IsConverted {
			return apperrors.NewAlreadyConverted(id)
		}
		before := leadValues(lead)
		fields.apply(lead)
		if err := repos.Leads.Update(ctx, lead); err != nil {
			return apperrors.MapError(err)
		}
		updated = lead
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditUpdate, "leads", id, before, leadValues(lead)))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangeOwner reassigns an open lead to an active user.
func (s *LeadService) ChangeOwner(ctx context.Context, id, ownerID, actorID int64) (*domain.Lead, error) {
	var updated *domain.Lead
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := ensureActiveUser(ctx, repos.Users, ownerID); err != nil {
			return err
		}
		lead, err := repos.Leads.GetByIDForUpdate(ctx, id)
		if err != nil {
			return lookupError(err, "lead", id)
		}
		if lead.IsConverted {
			return apperrors.NewAlreadyConverted(id)
		}
		oldOwner := lead.OwnerID
		lead.OwnerID = &ownerID
		if err := repos.Leads.Update(ctx, lead); err != nil {
			return apperrors.MapError(err)
		}
		updated = lead
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditChangeOwner, "leads", id,
			map[string]any{"owner_id": oldOwner}, map[string]any{"owner_id": ownerID}))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a lead.
func (s *LeadService) Delete(ctx context.Context, id, actorID int64) error {
	return s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		lead, err := repos.Leads.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "lead", id)
		}
		if err := repos.Leads.Delete(ctx, id); err != nil {
			return lookupError(err, "lead", id)
		}
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditDelete, "leads", id, leadValues(lead), nil))
	})
}

// List returns one page of leads.
func (s *LeadService) List(ctx context.Context, filter LeadListFilter) (PageResult[domain.Lead], error) {
	items, total, err := s.deps.Repos.Leads.List(ctx, repository.LeadFilter{
		Page:             filter.repoPage(),
		OwnerID:          filter.OwnerID,
		Status:           filter.Status,
		IncludeConverted: filter.IncludeConverted,
	})
	if err != nil {
		return PageResult[domain.Lead]{}, apperrors.MapError(err)
	}
	return newPageResult(items, total, filter.PageRequest), nil
}

// CheckDuplicates runs duplicate detection against open leads.
func (s *LeadService) CheckDuplicates(ctx context.Context, email, phone string) (*DuplicateWarning, error) {
	return s.duplicates.CheckDuplicates(ctx, domain.RecordKindLead, email, phone)
}

func leadValues(l *domain.Lead) map[string]any {
	return map[string]any{
		"first_name":  l.FirstName,
		"last_name":   l.LastName,
		"company":     l.Company,
		"title":       l.Title,
		"phone":       l.Phone,
		"email":       l.Email,
		"status":      l.Status,
		"score":       l.Score,
		"region":      l.Region,
		"source":      l.Source,
		"description": l.Description,
		"owner_id":    l.OwnerID,
	}
}
