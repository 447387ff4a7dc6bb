package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// Metrics receives workflow counters. observability.Metrics implements it.
type Metrics interface {
	RecordAssignment(kind domain.RecordKind, rule string)
	RecordConversion(outcome string)
	RecordEscalations(trigger string, count int)
	RecordMerge(closed int)
}

type nopMetrics struct{}

func (nopMetrics) RecordAssignment(domain.RecordKind, string) {}
func (nopMetrics) RecordConversion(string)                    {}
func (nopMetrics) RecordEscalations(string, int)              {}
func (nopMetrics) RecordMerge(int)                            {}

// Dependencies bundles what every service needs.
type Dependencies struct {
	Repos      repository.Repositories
	Tx         repository.Transactor
	Dispatcher events.Dispatcher
	Metrics    Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return d
}

func (d Dependencies) publish(ctx context.Context, eventType events.EventType, ref domain.RecordRef, actorID *int64, payload any) {
	if d.Dispatcher == nil {
		return
	}
	_ = d.Dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Record:    ref,
		ActorID:   actorID,
		Timestamp: d.Clock(),
		Payload:   payload,
	})
}

// lookupError converts a repository read error into NotFound or the infrastructure kind.
func lookupError(err error, resource string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return apperrors.MapError(err)
}

func recordAudit(ctx context.Context, repos repository.Repositories, actorID *int64, action domain.AuditAction, table string, targetID int64, oldValues, newValues map[string]any) error {
	return repos.AuditLogs.Create(ctx, &domain.AuditLog{
		UserID:      actorID,
		Action:      action,
		TargetTable: table,
		TargetID:    &targetID,
		OldValues:   oldValues,
		NewValues:   newValues,
	})
}

func int64Ptr(v int64) *int64 {
	return &v
}
