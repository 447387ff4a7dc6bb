package service

import (
	"context"
	"strings"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 100
)

// ActivityService reads activity logs and records manual entries.
type ActivityService struct {
	deps Dependencies
}

// NewActivityService creates the service.
func NewActivityService(deps Dependencies) *ActivityService {
	return &ActivityService{deps: deps.withDefaults()}
}

// ParseRecordRef validates a raw record type and id pair.
func ParseRecordRef(recordType string, recordID int64) (domain.RecordRef, error) {
	kind, err := domain.ParseRecordKind(recordType)
	if err != nil {
		return domain.RecordRef{}, apperrors.NewInvalidArgument("invalid record type",
			map[string]any{"record_type": recordType, "allowed": []domain.RecordKind{
				domain.RecordKindContact, domain.RecordKindAccount, domain.RecordKindLead,
				domain.RecordKindOpportunity, domain.RecordKindCase,
			}})
	}
	ref, err := domain.NewRecordRef(kind, recordID)
	if err != nil {
		return domain.RecordRef{}, apperrors.NewInvalidArgument("invalid record id", map[string]any{"record_id": recordID})
	}
	return ref, nil
}

// List returns the newest activities on ref first.
func (s *ActivityService) List(ctx context.Context, ref domain.RecordRef, limit, offset int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	if offset < 0 {
		offset = 0
	}
	items, err := s.deps.Repos.Activities.ListByRecord(ctx, ref, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if items == nil {
		items = []domain.Activity{}
	}
	return items, nil
}

// Log appends a manual activity. Workflow activity types cannot be logged by hand.
func (s *ActivityService) Log(ctx context.Context, ref domain.RecordRef, activityType domain.ActivityType, subject, details string, actorID int64) (*domain.Activity, error) {
	if !activityType.UserCreatable() {
		return nil, apperrors.NewInvalidArgument("invalid activity type", map[string]any{
			"activity_type": activityType,
			"allowed": []domain.ActivityType{
				domain.ActivityCall, domain.ActivityEmail, domain.ActivityMeeting, domain.ActivityNote, domain.ActivityTask,
			},
		})
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", map[string]any{"field": "subject"})
	}

	activity := &domain.Activity{
		Record:    ref,
		Type:      activityType,
		Subject:   subject,
		Details:   strings.TrimSpace(details),
		CreatedBy: &actorID,
	}
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := recordName(ctx, repos, ref); err != nil {
			return err
		}
		return apperrors.MapError(repos.Activities.Create(ctx, activity))
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}
