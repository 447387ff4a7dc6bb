package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/service"
)

// EventForwarder ships events to an external broker. events.AMQPPublisher implements it.
type EventForwarder interface {
	SubscribeAll(d events.Dispatcher)
}

// StartNotificationWorker registers the in-process notification handlers and, when a
// forwarder is configured, mirrors every event to the broker.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService, forwarder EventForwarder, logger *zap.Logger) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if forwarder != nil && dispatcher != nil {
		forwarder.SubscribeAll(dispatcher)
		logger.Info("forwarding domain events to broker")
	}
}

