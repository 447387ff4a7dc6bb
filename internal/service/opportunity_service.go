package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// OpportunityFields carries opportunity attributes. Nil fields are left untouched on update.
// Setting Stage recomputes the probability unless Probability is set as well.
type OpportunityFields struct {
	Name        *string
	AccountID   *int64
	Amount      *float64
	Stage       *domain.OpportunityStage
	Probability *int
	CloseDate   *time.Time
	Description *string
	OwnerID     *int64
}

func (f OpportunityFields) apply(o *domain.Opportunity) {
	setString(&o.Name, f.Name)
	setString(&o.Description, f.Description)
	if f.AccountID != nil {
		o.AccountID = f.AccountID
	}
	if f.Amount != nil {
		o.Amount = *f.Amount
	}
	if f.Stage != nil {
		o.SetStage(*f.Stage)
	}
	if f.Probability != nil {
		o.Probability = *f.Probability
	}
	if f.CloseDate != nil {
		o.CloseDate = f.CloseDate
	}
	if f.OwnerID != nil {
		o.OwnerID = f.OwnerID
	}
}

func (f OpportunityFields) validate() error {
	if f.Name != nil && strings.TrimSpace(*f.Name) == "" {
		return apperrors.NewValidationError("name must not be empty", map[string]any{"field": "name"})
	}
	if f.Amount != nil && *f.Amount < 0 {
		return apperrors.NewValidationError("amount must not be negative", map[string]any{"field": "amount"})
	}
	if f.Stage != nil && !f.Stage.Valid() {
		return apperrors.NewValidationError("unknown stage", map[string]any{"field": "stage", "value": *f.Stage})
	}
	if f.Probability != nil && (*f.Probability < 0 || *f.Probability > 100) {
		return apperrors.NewValidationError("probability must be between 0 and 100", map[string]any{"field": "probability"})
	}
	return nil
}

// OpportunityListFilter narrows opportunity listings.
type OpportunityListFilter struct {
	PageRequest
	OwnerID   *int64
	AccountID *int64
	Stage     domain.OpportunityStage
}

// OpportunityService manages opportunities.
type OpportunityService struct {
	deps Dependencies
}

// NewOpportunityService creates the service.
func NewOpportunityService(deps Dependencies) *OpportunityService {
	return &OpportunityService{deps: deps.withDefaults()}
}

// Create stores a new opportunity. It starts in Prospecting unless a stage is given.
func (s *OpportunityService) Create(ctx context.Context, fields OpportunityFields, actorID int64) (*domain.Opportunity, error) {
	if err := fields.validate(); err != nil {
		return nil, err
	}
	opp := &domain.Opportunity{}
	opp.SetStage(domain.StageProspecting)
	fields.apply(opp)
	if strings.TrimSpace(opp.Name) == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if opp.OwnerID == nil {
		opp.OwnerID = &actorID
	}
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if opp.AccountID != nil {
			if _, err := repos.Accounts.GetByID(ctx, *opp.AccountID); err != nil {
				return lookupError(err, "account", *opp.AccountID)
			}
		}
		if err := repos.Opportunities.Create(ctx, opp); err != nil {
			return apperrors.MapError(err)
		}
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditCreate, "opportunities", opp.ID, nil, opportunityValues(opp)))
	})
	if err != nil {
		return nil, err
	}
	return opp, nil
}

// Get returns an opportunity and records the view.
func (s *OpportunityService) Get(ctx context.Context, id, viewerID int64) (*domain.Opportunity, error) {
	opp, err := s.deps.Repos.Opportunities.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "opportunity", id)
	}
	s.deps.touchRecent(ctx, viewerID, domain.RecordRef{Kind: domain.RecordKindOpportunity, ID: id}, opp.Name)
	return opp, nil
}

// Update applies the non-nil fields.
func (s *OpportunityService) Update(ctx context.Context, id int64, fields OpportunityFields, actorID int64) (*domain.Opportunity, error) {
	if err := fields.validate(); err != nil {
		return nil, err
	}
	return s.modify(ctx, id, actorID, domain.AuditUpdate, fields.apply)
}

// UpdateStage moves the opportunity to stage and sets the probability for it.
func (s *OpportunityService) UpdateStage(ctx context.Context, id int64, stage domain.OpportunityStage, actorID int64) (*domain.Opportunity, error) {
	if !stage.Valid() {
		return nil, apperrors.NewValidationError("unknown stage", map[string]any{"field": "stage", "value": stage})
	}
	return s.modify(ctx, id, actorID, domain.AuditUpdate, func(o *domain.Opportunity) {
		o.SetStage(stage)
	})
}

// ChangeOwner reassigns the opportunity to an active user.
func (s *OpportunityService) ChangeOwner(ctx context.Context, id, ownerID, actorID int64) (*domain.Opportunity, error) {
	if err := ensureActiveUser(ctx, s.deps.Repos.Users, ownerID); err != nil {
		return nil, err
	}
	return s.modify(ctx, id, actorID, domain.AuditChangeOwner, func(o *domain.Opportunity) {
		o.OwnerID = &ownerID
	})
}

func (s *OpportunityService) modify(ctx context.Context, id, actorID int64, action domain.AuditAction, change func(*domain.Opportunity)) (*domain.Opportunity, error) {
	var updated *domain.Opportunity
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		opp, err := repos.Opportunities.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "opportunity", id)
		}
		before := opportunityValues(opp)
		change(opp)
		if err := repos.Opportunities.Update(ctx, opp); err != nil {
			return apperrors.MapError(err)
		}
		updated = opp
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, action, "opportunities", id, before, opportunityValues(opp)))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an opportunity.
func (s *OpportunityService) Delete(ctx context.Context, id, actorID int64) error {
	return s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		opp, err := repos.Opportunities.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, "opportunity", id)
		}
		if err := repos.Opportunities.Delete(ctx, id); err != nil {
			return lookupError(err, "opportunity", id)
		}
		return apperrors.MapError(recordAudit(ctx, repos, &actorID, domain.AuditDelete, "opportunities", id, opportunityValues(opp), nil))
	})
}

// List returns one page of opportunities.
func (s *OpportunityService) List(ctx context.Context, filter OpportunityListFilter) (PageResult[domain.Opportunity], error) {
	items, total, err := s.deps.Repos.Opportunities.List(ctx, repository.OpportunityFilter{
		Page:      filter.repoPage(),
		OwnerID:   filter.OwnerID,
		AccountID: filter.AccountID,
		Stage:     filter.Stage,
	})
	if err != nil {
		return PageResult[domain.Opportunity]{}, apperrors.MapError(err)
	}
	return newPageResult(items, total, filter.PageRequest), nil
}

func opportunityValues(o *domain.Opportunity) map[string]any {
	return map[string]any{
		"name":        o.Name,
		"account_id":  o.AccountID,
		"amount":      o.Amount,
		"stage":       o.Stage,
		"probability": o.Probability,
		"close_date":  o.CloseDate,
		"description": o.Description,
		"owner_id":    o.OwnerID,
	}
}
