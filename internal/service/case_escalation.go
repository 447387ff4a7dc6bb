package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

const (
	escalationSubject       = "Case Escalated"
	manualEscalationDetails = "Case was manually escalated"
)

// CaseEscalationService flags cases for management attention.
type CaseEscalationService struct {
	deps Dependencies
}

// NewCaseEscalationService creates the service.
func NewCaseEscalationService(deps Dependencies) *CaseEscalationService {
	return &CaseEscalationService{deps: deps.withDefaults()}
}

// EscalateCase escalates one case. Escalating an escalated case re-stamps escalated_at
// and appends another activity.
func (s *CaseEscalationService) EscalateCase(ctx context.Context, caseID int64, actorID int64) (*domain.Case, error) {
	var escalated *domain.Case
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		c, err := repos.Cases.GetByIDForUpdate(ctx, caseID)
		if err != nil {
			return lookupError(err, "case", caseID)
		}
		if err := s.escalate(ctx, repos, c, &actorID, manualEscalationDetails); err != nil {
			return apperrors.MapError(err)
		}
		escalated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Metrics.RecordEscalations(events.TriggerManual, 1)
	s.deps.Logger.Info("case escalated",
		zap.Int64("case_id", escalated.ID),
		zap.String("case_number", escalated.CaseNumber),
		zap.Int64("user_id", actorID))
	s.publishEscalation(ctx, escalated, &actorID, events.TriggerManual)
	return escalated, nil
}

// SweepOverdueCases escalates every open, unescalated case whose SLA deadline is in the past
// and returns them. All escalations commit together. actorID is nil for system-initiated sweeps.
func (s *CaseEscalationService) SweepOverdueCases(ctx context.Context, actorID *int64) ([]domain.Case, error) {
	now := s.deps.Clock()
	var escalated []domain.Case
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		overdue, err := repos.Cases.ListOverdue(ctx, now)
		if err != nil {
			return apperrors.MapError(err)
		}
		escalated = make([]domain.Case, 0, len(overdue))
		for i := range overdue {
			c := &overdue[i]
			if !c.IsOverdue(now) {
				continue
			}
			if err := s.escalate(ctx, repos, c, actorID, slaEscalationDetails(c.SLADueDate)); err != nil {
				return apperrors.MapError(err)
			}
			escalated = append(escalated, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Metrics.RecordEscalations(events.TriggerSLA, len(escalated))
	if len(escalated) > 0 {
		s.deps.Logger.Info("overdue cases escalated", zap.Int("count", len(escalated)))
	}
	for i := range escalated {
		s.publishEscalation(ctx, &escalated[i], actorID, events.TriggerSLA)
	}
	return escalated, nil
}

func (s *CaseEscalationService) escalate(ctx context.Context, repos repository.Repositories, c *domain.Case, actorID *int64, details string) error {
	oldStatus := c.Status
	c.Escalate(s.deps.Clock())
	if err := repos.Cases.Update(ctx, c); err != nil {
		return fmt.Errorf("update case %d: %w", c.ID, err)
	}
	if err := repos.Activities.Create(ctx, &domain.Activity{
		Record:    domain.CaseRef(c.ID),
		Type:      domain.ActivityEscalation,
		Subject:   escalationSubject,
		Details:   details,
		CreatedBy: actorID,
	}); err != nil {
		return fmt.Errorf("log escalation activity: %w", err)
	}
	return recordAudit(ctx, repos, actorID, domain.AuditEscalate, "cases", c.ID,
		map[string]any{"status": oldStatus},
		map[string]any{"status": c.Status, "is_escalated": true, "escalated_at": c.EscalatedAt})
}

func (s *CaseEscalationService) publishEscalation(ctx context.Context, c *domain.Case, actorID *int64, trigger string) {
	s.deps.publish(ctx, events.EventCaseEscalated, domain.CaseRef(c.ID), actorID, events.CaseEscalatedPayload{
		CaseNumber: c.CaseNumber,
		Subject:    c.Subject,
		OwnerID:    c.OwnerID,
		Trigger:    trigger,
		SLADueDate: c.SLADueDate,
	})
}

func slaEscalationDetails(due time.Time) string {
	return fmt.Sprintf("Case automatically escalated: SLA deadline %s passed", due.UTC().Format(time.RFC3339))
}
