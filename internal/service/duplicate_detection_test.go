package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

func TestCheckDuplicatesContactsCappedAtFive(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 7; i++ {
		f.store.addContact(domain.Contact{FirstName: "Dup", LastName: fmt.Sprint(i), Email: "dup@example.com"})
	}
	f.store.addContact(domain.Contact{LastName: "Other", Email: "other@example.com"})

	warning, err := NewDuplicateDetector(f.deps.Repos).CheckDuplicates(f.ctx, domain.RecordKindContact, "dup@example.com", "")
	require.NoError(t, err)
	assert.True(t, warning.HasMatches())
	assert.Len(t, warning.Matches, MaxDuplicateMatches)
	assert.Equal(t, "email", warning.Field)
	assert.Equal(t, "dup@example.com", warning.Value)
	assert.Equal(t, []string{"email"}, warning.SearchedFields)
	for _, m := range warning.Matches {
		assert.Equal(t, "dup@example.com", m.Email)
	}
}

func TestCheckDuplicatesReturnsMatchingContact(t *testing.T) {
	f := newFixture(t)
	c := f.store.addContact(domain.Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "555-1"})

	warning, err := NewDuplicateDetector(f.deps.Repos).CheckDuplicates(f.ctx, domain.RecordKindContact, " ada@example.com ", "")
	require.NoError(t, err)
	require.Len(t, warning.Matches, 1)
	assert.Equal(t, DuplicateMatch{ID: c.ID, Name: "Ada Lovelace", Email: "ada@example.com", Phone: "555-1"}, warning.Matches[0])
}

func TestCheckDuplicatesLeadsSkipConverted(t *testing.T) {
	f := newFixture(t)
	open := f.store.addLead(domain.Lead{LastName: "Open", Phone: "555-2", Company: "Acme"})
	f.store.addLead(domain.Lead{LastName: "Done", Phone: "555-2", IsConverted: true, Status: domain.LeadStatusConverted})

	warning, err := NewDuplicateDetector(f.deps.Repos).CheckDuplicates(f.ctx, domain.RecordKindLead, "", "555-2")
	require.NoError(t, err)
	require.Len(t, warning.Matches, 1)
	assert.Equal(t, open.ID, warning.Matches[0].ID)
	assert.Equal(t, "Acme", warning.Matches[0].Company)
	assert.Equal(t, "phone", warning.Field)
	assert.Equal(t, "555-2", warning.Value)
}

func TestCheckDuplicatesBothFieldsReportsEmailFirst(t *testing.T) {
	f := newFixture(t)
	byEmail := f.store.addLead(domain.Lead{LastName: "E", Email: "e@example.com"})
	byPhone := f.store.addLead(domain.Lead{LastName: "P", Phone: "555-3"})

	warning, err := NewDuplicateDetector(f.deps.Repos).CheckDuplicates(f.ctx, domain.RecordKindLead, "e@example.com", "555-3")
	require.NoError(t, err)
	assert.Equal(t, "email", warning.Field)
	assert.Equal(t, "e@example.com", warning.Value)
	assert.Equal(t, []string{"email", "phone"}, warning.SearchedFields)

	var ids []int64
	for _, m := range warning.Matches {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []int64{byEmail.ID, byPhone.ID}, ids)
}

func TestCheckDuplicatesNoMatches(t *testing.T) {
	f := newFixture(t)
	warning, err := NewDuplicateDetector(f.deps.Repos).CheckDuplicates(f.ctx, domain.RecordKindContact, "nobody@example.com", "")
	require.NoError(t, err)
	assert.False(t, warning.HasMatches())
	assert.NotNil(t, warning.Matches)
}

func TestCheckDuplicatesInvalidInput(t *testing.T) {
	f := newFixture(t)
	detector := NewDuplicateDetector(f.deps.Repos)

	_, err := detector.CheckDuplicates(f.ctx, domain.RecordKindContact, " ", "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	_, err = detector.CheckDuplicates(f.ctx, domain.RecordKindAccount, "a@example.com", "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
}
