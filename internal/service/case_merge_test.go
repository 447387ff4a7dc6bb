package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

func TestMergeCasesClosesOthersAndLogsOnMaster(t *testing.T) {
	f := newFixture(t)
	first := f.store.addCase(domain.Case{Subject: "Login broken"})
	master := f.store.addCase(domain.Case{Subject: "Cannot sign in", Description: "original", Priority: domain.CasePriorityHigh})
	third := f.store.addCase(domain.Case{Subject: "SSO fails", Description: "steps to reproduce"})
	svc := NewCaseMergeService(f.deps)

	got, err := svc.MergeCases(f.ctx, []int64{first.ID, master.ID, third.ID}, master.ID, f.actor.ID)
	require.NoError(t, err)
	assert.Equal(t, master, *got)
	assert.Equal(t, master, f.kase(t, master.ID))

	marker := "[Merged into " + master.CaseNumber + "]"
	closedFirst := f.kase(t, first.ID)
	assert.Equal(t, domain.CaseStatusClosed, closedFirst.Status)
	assert.Equal(t, marker, closedFirst.Description)

	closedThird := f.kase(t, third.ID)
	assert.Equal(t, domain.CaseStatusClosed, closedThird.Status)
	assert.Equal(t, "steps to reproduce\n\n"+marker, closedThird.Description)

	activities := f.store.activitiesFor(domain.CaseRef(master.ID))
	require.Len(t, activities, 1)
	assert.Equal(t, domain.ActivityMerge, activities[0].Type)
	assert.Equal(t, "Cases Merged", activities[0].Subject)
	assert.Equal(t, "Merged cases:\nCase "+first.CaseNumber+": Login broken\nCase "+third.CaseNumber+": SSO fails", activities[0].Details)
	assert.Empty(t, f.store.activitiesFor(domain.CaseRef(first.ID)))

	published := f.events.ofType(events.EventCasesMerged)
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.CasesMergedPayload)
	assert.Equal(t, []int64{first.ID, third.ID}, payload.MergedCaseIDs)
	assert.Equal(t, 2, f.metrics.merged)
}

func TestMergeCasesPreconditions(t *testing.T) {
	f := newFixture(t)
	a := f.store.addCase(domain.Case{Subject: "a"})
	b := f.store.addCase(domain.Case{Subject: "b"})
	svc := NewCaseMergeService(f.deps)

	_, err := svc.MergeCases(f.ctx, []int64{a.ID}, a.ID, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument), "single case")

	_, err = svc.MergeCases(f.ctx, []int64{a.ID, a.ID}, a.ID, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument), "repeated id")

	_, err = svc.MergeCases(f.ctx, []int64{a.ID, b.ID}, 999, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument), "master outside set")

	assert.Equal(t, domain.CaseStatusNew, f.kase(t, a.ID).Status)
	assert.Equal(t, domain.CaseStatusNew, f.kase(t, b.ID).Status)
	assert.Zero(t, f.store.commit)
}

func TestMergeCasesMissingMaster(t *testing.T) {
	f := newFixture(t)
	a := f.store.addCase(domain.Case{Subject: "a"})

	_, err := NewCaseMergeService(f.deps).MergeCases(f.ctx, []int64{a.ID, 999}, 999, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.Equal(t, domain.CaseStatusNew, f.kase(t, a.ID).Status)
}

func TestMergeCasesSkipsMissingCases(t *testing.T) {
	f := newFixture(t)
	master := f.store.addCase(domain.Case{Subject: "master"})
	other := f.store.addCase(domain.Case{Subject: "other"})

	_, err := NewCaseMergeService(f.deps).MergeCases(f.ctx, []int64{master.ID, 999, other.ID}, master.ID, f.actor.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusClosed, f.kase(t, other.ID).Status)

	activities := f.store.activitiesFor(domain.CaseRef(master.ID))
	require.Len(t, activities, 1)
	assert.NotContains(t, activities[0].Details, "999")
	assert.Equal(t, 1, f.metrics.merged)
}

func TestMergeCasesAtomic(t *testing.T) {
	f := newFixture(t)
	master := f.store.addCase(domain.Case{Subject: "master"})
	other := f.store.addCase(domain.Case{Subject: "other", Description: "keep"})
	f.store.fail["activities.Create"] = errInjected

	_, err := NewCaseMergeService(f.deps).MergeCases(f.ctx, []int64{master.ID, other.ID}, master.ID, f.actor.ID)
	require.ErrorIs(t, err, errInjected)

	stored := f.kase(t, other.ID)
	assert.Equal(t, domain.CaseStatusNew, stored.Status)
	assert.Equal(t, "keep", stored.Description)
	assert.Empty(t, f.store.audits)
}

func TestUniqueIDsKeepsOrder(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, uniqueIDs([]int64{3, 1, 3, 2, 1}))
	assert.Empty(t, uniqueIDs(nil))
}
