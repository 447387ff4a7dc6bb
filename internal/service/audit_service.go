package service

import (
	"context"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// AuditListFilter narrows audit log listings.
type AuditListFilter struct {
	PageRequest
	UserID      *int64
	TargetTable string
	TargetID    *int64
}

// AuditService exposes the audit trail written by the other services.
type AuditService struct {
	deps Dependencies
}

// NewAuditService creates the service.
func NewAuditService(deps Dependencies) *AuditService {
	return &AuditService{deps: deps.withDefaults()}
}

// List returns one page of audit entries, newest first.
func (s *AuditService) List(ctx context.Context, filter AuditListFilter) (PageResult[domain.AuditLog], error) {
	items, total, err := s.deps.Repos.AuditLogs.List(ctx, repository.AuditLogFilter{
		Page:        filter.repoPage(),
		UserID:      filter.UserID,
		TargetTable: filter.TargetTable,
		TargetID:    filter.TargetID,
	})
	if err != nil {
		return PageResult[domain.AuditLog]{}, apperrors.MapError(err)
	}
	return newPageResult(items, total, filter.PageRequest), nil
}
