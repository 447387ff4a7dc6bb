package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

func TestEscalateCaseSetsFlagsAndLogsActivity(t *testing.T) {
	f := newFixture(t)
	c := f.store.addCase(domain.Case{Subject: "Printer", OwnerID: int64Ptr(f.salesA.ID), SLADueDate: f.now.Add(time.Hour)})
	svc := NewCaseEscalationService(f.deps)

	got, err := svc.EscalateCase(f.ctx, c.ID, f.actor.ID)
	require.NoError(t, err)
	assert.True(t, got.IsEscalated)
	assert.Equal(t, domain.CaseStatusEscalated, got.Status)
	require.NotNil(t, got.EscalatedAt)
	assert.Equal(t, f.now, *got.EscalatedAt)

	stored := f.kase(t, c.ID)
	assert.True(t, stored.IsEscalated)
	assert.Equal(t, domain.CaseStatusEscalated, stored.Status)

	activities := f.store.activitiesFor(domain.CaseRef(c.ID))
	require.Len(t, activities, 1)
	assert.Equal(t, domain.ActivityEscalation, activities[0].Type)
	assert.Equal(t, "Case Escalated", activities[0].Subject)
	assert.Equal(t, manualEscalationDetails, activities[0].Details)

	published := f.events.ofType(events.EventCaseEscalated)
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.CaseEscalatedPayload)
	assert.Equal(t, events.TriggerManual, payload.Trigger)
	assert.Equal(t, c.CaseNumber, payload.CaseNumber)
}

func TestEscalateCaseTwiceRestampsAndLogsAgain(t *testing.T) {
	f := newFixture(t)
	c := f.store.addCase(domain.Case{Subject: "Outage", SLADueDate: f.now.Add(time.Hour)})
	svc := NewCaseEscalationService(f.deps)

	_, err := svc.EscalateCase(f.ctx, c.ID, f.actor.ID)
	require.NoError(t, err)

	f.now = f.now.Add(30 * time.Minute)
	got, err := svc.EscalateCase(f.ctx, c.ID, f.actor.ID)
	require.NoError(t, err)
	assert.Equal(t, f.now, *got.EscalatedAt)
	assert.Len(t, f.store.activitiesFor(domain.CaseRef(c.ID)), 2)
	assert.Equal(t, 2, f.metrics.escalations[events.TriggerManual])
}

func TestEscalateCaseNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := NewCaseEscalationService(f.deps).EscalateCase(f.ctx, 777, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.Empty(t, f.store.activities)
}

func TestSweepOverdueCasesSelectsOnlyOverdueOpenCases(t *testing.T) {
	f := newFixture(t)
	overdueHigh := f.store.addCase(domain.Case{Subject: "late high", Priority: domain.CasePriorityHigh, SLADueDate: f.now.Add(-2 * time.Hour)})
	overdueLow := f.store.addCase(domain.Case{Subject: "late low", Priority: domain.CasePriorityLow, SLADueDate: f.now.Add(-time.Minute), OwnerID: int64Ptr(f.salesB.ID)})
	dueNow := f.store.addCase(domain.Case{Subject: "due exactly now", SLADueDate: f.now})
	future := f.store.addCase(domain.Case{Subject: "future", SLADueDate: f.now.Add(time.Hour)})
	closed := f.store.addCase(domain.Case{Subject: "closed", Status: domain.CaseStatusClosed, SLADueDate: f.now.Add(-time.Hour)})
	already := f.store.addCase(domain.Case{Subject: "already", IsEscalated: true, Status: domain.CaseStatusEscalated, SLADueDate: f.now.Add(-time.Hour)})
	svc := NewCaseEscalationService(f.deps)

	escalated, err := svc.SweepOverdueCases(f.ctx, nil)
	require.NoError(t, err)

	var ids []int64
	for _, c := range escalated {
		ids = append(ids, c.ID)
		assert.True(t, c.IsEscalated)
		assert.Equal(t, domain.CaseStatusEscalated, c.Status)
	}
	assert.ElementsMatch(t, []int64{overdueHigh.ID, overdueLow.ID}, ids)

	for _, id := range []int64{dueNow.ID, future.ID, closed.ID} {
		assert.False(t, f.kase(t, id).IsEscalated, "case %d", id)
	}
	assert.Nil(t, f.kase(t, already.ID).EscalatedAt)
	assert.Equal(t, domain.CaseStatusClosed, f.kase(t, closed.ID).Status)

	activities := f.store.activitiesFor(domain.CaseRef(overdueLow.ID))
	require.Len(t, activities, 1)
	assert.Equal(t, slaEscalationDetails(overdueLow.SLADueDate), activities[0].Details)
	assert.Nil(t, activities[0].CreatedBy)

	published := f.events.ofType(events.EventCaseEscalated)
	require.Len(t, published, 2)
	assert.Equal(t, events.TriggerSLA, published[0].Payload.(events.CaseEscalatedPayload).Trigger)
	assert.Equal(t, 2, f.metrics.escalations[events.TriggerSLA])
	assert.Equal(t, 1, f.store.commit)
}

func TestSweepOverdueCasesIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.store.addCase(domain.Case{Subject: "late", SLADueDate: f.now.Add(-time.Hour)})
	svc := NewCaseEscalationService(f.deps)

	first, err := svc.SweepOverdueCases(f.ctx, int64Ptr(f.actor.ID))
	require.NoError(t, err)
	require.Len(t, first, 1)
	stamped := *f.kase(t, c.ID).EscalatedAt

	f.now = f.now.Add(time.Hour)
	second, err := svc.SweepOverdueCases(f.ctx, int64Ptr(f.actor.ID))
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, stamped, *f.kase(t, c.ID).EscalatedAt)
	assert.Len(t, f.store.activitiesFor(domain.CaseRef(c.ID)), 1)
}

func TestSweepOverdueCasesRollsBackAsBatch(t *testing.T) {
	f := newFixture(t)
	a := f.store.addCase(domain.Case{Subject: "a", SLADueDate: f.now.Add(-2 * time.Hour)})
	b := f.store.addCase(domain.Case{Subject: "b", SLADueDate: f.now.Add(-time.Hour)})
	f.store.fail["audits.Create"] = errInjected

	_, err := NewCaseEscalationService(f.deps).SweepOverdueCases(f.ctx, nil)
	require.ErrorIs(t, err, errInjected)
	assert.False(t, f.kase(t, a.ID).IsEscalated)
	assert.False(t, f.kase(t, b.ID).IsEscalated)
	assert.Empty(t, f.store.activities)
	assert.Empty(t, f.events.ofType(events.EventCaseEscalated))
}

func TestCreateCaseSLADeadline(t *testing.T) {
	f := newFixture(t)
	svc := NewCaseService(f.deps)

	cases := []struct {
		priority domain.CasePriority
		window   time.Duration
	}{
		{domain.CasePriorityCritical, 4 * time.Hour},
		{domain.CasePriorityHigh, 8 * time.Hour},
		{domain.CasePriorityMedium, 24 * time.Hour},
		{domain.CasePriorityLow, 48 * time.Hour},
		{domain.CasePriority("Urgent"), 24 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(string(tc.priority), func(t *testing.T) {
			subject := "sla " + string(tc.priority)
			priority := tc.priority
			c, err := svc.Create(f.ctx, CaseFields{Subject: &subject, Priority: &priority}, false, f.actor.ID)
			require.NoError(t, err)
			assert.Equal(t, f.now, c.CreatedAt)
			assert.Equal(t, f.now.Add(tc.window), c.SLADueDate)
			assert.True(t, domain.IsCaseNumber(c.CaseNumber), c.CaseNumber)
		})
	}
}

func TestCaseUpdateKeepsSLADeadline(t *testing.T) {
	f := newFixture(t)
	svc := NewCaseService(f.deps)
	subject := "slow printer"
	low := domain.CasePriorityLow
	c, err := svc.Create(f.ctx, CaseFields{Subject: &subject, Priority: &low}, false, f.actor.ID)
	require.NoError(t, err)

	critical := domain.CasePriorityCritical
	updated, err := svc.Update(f.ctx, c.ID, CaseFields{Priority: &critical}, f.actor.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CasePriorityCritical, updated.Priority)
	assert.Equal(t, c.SLADueDate, f.kase(t, c.ID).SLADueDate)
}

func TestCreateCaseAutoAssign(t *testing.T) {
	f := newFixture(t)
	svc := NewCaseService(f.deps)
	subject := "down"
	critical := domain.CasePriorityCritical

	c, err := svc.Create(f.ctx, CaseFields{Subject: &subject, Priority: &critical}, true, f.actor.ID)
	require.NoError(t, err)
	require.NotNil(t, c.OwnerID)
	assert.Equal(t, f.salesA.ID, *c.OwnerID)
	assert.Equal(t, f.salesA.ID, *f.kase(t, c.ID).OwnerID)
	assert.Equal(t, 1, f.metrics.assignments["case:"+RulePriority])
	assert.Len(t, f.events.ofType(events.EventCaseAssigned), 1)

	manual, err := svc.Create(f.ctx, CaseFields{Subject: &subject}, false, f.actor.ID)
	require.NoError(t, err)
	assert.Nil(t, manual.OwnerID)
	assert.Len(t, f.events.ofType(events.EventCaseCreated), 2)
}

func TestCreateCaseRequiresSubject(t *testing.T) {
	f := newFixture(t)
	blank := "  "
	_, err := NewCaseService(f.deps).Create(f.ctx, CaseFields{Subject: &blank}, false, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Empty(t, f.store.cases)
}
