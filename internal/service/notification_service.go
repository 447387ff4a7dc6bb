package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/notify"
)

// Mailer delivers e-mail. notify.SMTPMailer implements it.
type Mailer interface {
	Send(ctx context.Context, msg notify.Message) error
}

// UserFinder loads a user by id.
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// NotificationService reacts to domain events: every event is logged and escalations are
// mailed to the case owner when a mailer is configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      UserFinder
	mailer     Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service. mailer may be nil.
func NewNotificationService(dispatcher events.Dispatcher, users UserFinder, mailer Mailer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		users:      users,
		mailer:     mailer,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.logEvent)
	}
	n.dispatcher.Subscribe(events.EventCaseEscalated, n.handleCaseEscalated)
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info("domain event",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.Stringer("record", event.Record),
		zap.Int64p("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleCaseEscalated(ctx context.Context, event events.Event) error {
	if n.mailer == nil {
		return nil
	}
	payload, ok := event.Payload.(events.CaseEscalatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if payload.OwnerID == nil {
		n.logger.Debug("escalated case has no owner; skipping mail", zap.String("case_number", payload.CaseNumber))
		return nil
	}

	owner, err := n.users.GetByID(ctx, *payload.OwnerID)
	if err != nil {
		return fmt.Errorf("load case owner %d: %w", *payload.OwnerID, err)
	}
	if owner.Email == "" || !owner.IsActive {
		return nil
	}

	msg, err := notify.EscalationMessage(owner.Email, notify.EscalationData{
		RecipientName: owner.FullName(),
		CaseNumber:    payload.CaseNumber,
		Subject:       payload.Subject,
		Trigger:       payload.Trigger,
		SLADueDate:    payload.SLADueDate,
	})
	if err != nil {
		return err
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return err
	}
	n.logger.Info("escalation mail sent",
		zap.String("case_number", payload.CaseNumber),
		zap.Int64("owner_id", owner.ID))
	return nil
}
