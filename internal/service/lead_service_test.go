package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

func str(s string) *string { return &s }

func TestCreateLeadAutoAssign(t *testing.T) {
	f := newFixture(t)
	svc := NewLeadService(f.deps)
	hot := 92

	lead, err := svc.Create(f.ctx, LeadFields{LastName: str("Hot"), Score: &hot}, LeadCreateOptions{AutoAssign: true}, f.actor.ID)
	require.NoError(t, err)
	require.NotNil(t, lead.OwnerID)
	assert.Equal(t, f.salesA.ID, *lead.OwnerID)
	assert.Equal(t, domain.LeadStatusNew, lead.Status)
	assert.Equal(t, 1, f.metrics.assignments["lead:"+RulePriority])

	assigned := f.events.ofType(events.EventLeadAssigned)
	require.Len(t, assigned, 1)
	assert.Equal(t, events.AssignedPayload{OwnerID: f.salesA.ID, Rule: RulePriority}, assigned[0].Payload)

	owned, err := svc.Create(f.ctx, LeadFields{LastName: str("Owned"), OwnerID: int64Ptr(f.salesC.ID)}, LeadCreateOptions{AutoAssign: true}, f.actor.ID)
	require.NoError(t, err)
	assert.Equal(t, f.salesC.ID, *owned.OwnerID)
	assert.Len(t, f.events.ofType(events.EventLeadAssigned), 1)
}

func TestCreateLeadAutoAssignWithEmptyPool(t *testing.T) {
	f := newFixture(t)
	for id, u := range f.store.users {
		u.IsActive = false
		f.store.users[id] = u
	}

	lead, err := NewLeadService(f.deps).Create(f.ctx, LeadFields{LastName: str("Nobody")}, LeadCreateOptions{AutoAssign: true}, f.actor.ID)
	require.NoError(t, err)
	assert.Nil(t, lead.OwnerID)
	assert.Empty(t, f.events.ofType(events.EventLeadAssigned))
}

func TestCreateLeadDuplicateConflict(t *testing.T) {
	f := newFixture(t)
	existing := f.store.addLead(domain.Lead{LastName: "Existing", Email: "dup@example.com"})
	svc := NewLeadService(f.deps)

	_, err := svc.Create(f.ctx, LeadFields{LastName: str("New"), Email: str("dup@example.com")}, LeadCreateOptions{CheckDuplicates: true}, f.actor.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	derr := apperrors.ToDomainError(err)
	warning, ok := derr.Details["duplicates"].(*DuplicateWarning)
	require.True(t, ok)
	require.Len(t, warning.Matches, 1)
	assert.Equal(t, existing.ID, warning.Matches[0].ID)
	assert.Len(t, f.store.leads, 1)

	_, err = svc.Create(f.ctx, LeadFields{LastName: str("New"), Email: str("dup@example.com")}, LeadCreateOptions{}, f.actor.ID)
	require.NoError(t, err, "the check is opt-in")
}

func TestCreateLeadValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewLeadService(f.deps)

	_, err := svc.Create(f.ctx, LeadFields{FirstName: str("Only")}, LeadCreateOptions{}, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	converted := domain.LeadStatusConverted
	_, err = svc.Create(f.ctx, LeadFields{LastName: str("X"), Status: &converted}, LeadCreateOptions{}, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Empty(t, f.store.leads)
}

func TestUpdateConvertedLeadRejected(t *testing.T) {
	f := newFixture(t)
	lead := f.store.addLead(domain.Lead{LastName: "Done", IsConverted: true, Status: domain.LeadStatusConverted})
	svc := NewLeadService(f.deps)

	_, err := svc.Update(f.ctx, lead.ID, LeadFields{Company: str("Other")}, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAlreadyConverted))

	_, err = svc.ChangeOwner(f.ctx, lead.ID, f.salesA.ID, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAlreadyConverted))
	assert.Empty(t, f.lead(t, lead.ID).Company)
}

func TestChangeLeadOwner(t *testing.T) {
	f := newFixture(t)
	lead := f.store.addLead(domain.Lead{LastName: "Open"})
	svc := NewLeadService(f.deps)

	updated, err := svc.ChangeOwner(f.ctx, lead.ID, f.salesB.ID, f.actor.ID)
	require.NoError(t, err)
	assert.Equal(t, f.salesB.ID, *updated.OwnerID)

	_, err = svc.ChangeOwner(f.ctx, lead.ID, f.inactive.ID, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	_, err = svc.ChangeOwner(f.ctx, lead.ID, 999, f.actor.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.Equal(t, f.salesB.ID, *f.lead(t, lead.ID).OwnerID)

	last := f.store.audits[len(f.store.audits)-1]
	assert.Equal(t, domain.AuditChangeOwner, last.Action)
	assert.Equal(t, "leads", last.TargetTable)
}

func TestListLeadsHidesConvertedByDefault(t *testing.T) {
	f := newFixture(t)
	f.store.addLead(domain.Lead{LastName: "Open"})
	f.store.addLead(domain.Lead{LastName: "Done", IsConverted: true})
	svc := NewLeadService(f.deps)

	page, err := svc.List(f.ctx, LeadListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPageSize, page.PageSize)

	page, err = svc.List(f.ctx, LeadListFilter{IncludeConverted: true})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestGetLeadTouchesRecentRecords(t *testing.T) {
	f := newFixture(t)
	lead := f.store.addLead(domain.Lead{FirstName: "Grace", LastName: "Hopper"})
	svc := NewLeadService(f.deps)

	_, err := svc.Get(f.ctx, lead.ID, f.salesA.ID)
	require.NoError(t, err)
	_, err = svc.Get(f.ctx, lead.ID, f.salesA.ID)
	require.NoError(t, err)

	require.Len(t, f.store.recents, 1)
	assert.Equal(t, "Grace Hopper", f.store.recents[0].RecordName)
	assert.Equal(t, domain.LeadRef(lead.ID), f.store.recents[0].Record)

	f.store.fail["recents.Touch"] = errInjected
	_, err = svc.Get(f.ctx, lead.ID, f.salesB.ID)
	assert.NoError(t, err, "recent tracking never fails a read")
}
