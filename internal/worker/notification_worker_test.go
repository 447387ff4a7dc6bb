package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/service"
)

type recordingForwarder struct {
	seen []events.EventType
}

func (f *recordingForwarder) SubscribeAll(d events.Dispatcher) {
	for _, et := range events.AllEventTypes {
		d.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.seen = append(f.seen, e.Type)
			return nil
		})
	}
}

type noUsers struct{}

func (noUsers) GetByID(context.Context, int64) (*domain.User, error) { return nil, nil }

func TestStartNotificationWorkerWiresForwarder(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	forwarder := &recordingForwarder{}
	notifications := service.NewNotificationService(dispatcher, noUsers{}, nil, zap.NewNop())

	StartNotificationWorker(dispatcher, notifications, forwarder, zap.NewNop())

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventCasesMerged, Record: domain.CaseRef(1)}))
	assert.Equal(t, []events.EventType{events.EventCasesMerged}, forwarder.seen)
}

func TestStartNotificationWorkerWithoutForwarder(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	assert.NotPanics(t, func() {
		StartNotificationWorker(dispatcher, nil, nil, zap.NewNop())
	})
}
