package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

func TestValidateReportsJSONFieldNames(t *testing.T) {
	err := Validate(&RegisterRequest{Username: "al", Email: "not-an-email", Password: "short"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	fields := apperrors.ToDomainError(err).Details["fields"].(map[string]string)
	assert.Equal(t, "min=3", fields["username"])
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "min=8", fields["password"])
}

func TestValidateOptionalPointers(t *testing.T) {
	assert.NoError(t, Validate(&ContactRequest{}))

	bad := "nope"
	err := Validate(&ContactRequest{Email: &bad})
	require.Error(t, err)
	fields := apperrors.ToDomainError(err).Details["fields"].(map[string]string)
	assert.Contains(t, fields, "email")
}

func TestValidateQueryNames(t *testing.T) {
	err := Validate(&ListQuery{PageSize: 500, SortOrder: "sideways"})
	require.Error(t, err)
	fields := apperrors.ToDomainError(err).Details["fields"].(map[string]string)
	assert.Equal(t, "lte=100", fields["page_size"])
	assert.Equal(t, "oneof=asc desc", fields["sort_order"])
}

func TestMergeRequestLeavesCountToWorkflow(t *testing.T) {
	assert.NoError(t, Validate(&MergeCasesRequest{CaseIDs: []int64{5}, MasterCaseID: 5}))
	assert.Error(t, Validate(&MergeCasesRequest{CaseIDs: []int64{5, 0}, MasterCaseID: 5}))
	assert.Error(t, Validate(&MergeCasesRequest{CaseIDs: []int64{5, 6}}))
}

func TestResponsesCarryDerivedFields(t *testing.T) {
	owner := int64(3)
	resp := NewLeadResponse(&domain.Lead{ID: 9, FirstName: "Grace", LastName: "Hopper", OwnerID: &owner})
	assert.Equal(t, "Grace Hopper", resp.FullName)
	assert.Equal(t, &owner, resp.OwnerID)

	user := NewUserResponse(&domain.User{ID: 1, Username: "jdoe", PasswordHash: "secret"})
	assert.Equal(t, "JD", user.Alias)
	assert.Equal(t, "jdoe", user.FullName)
}
