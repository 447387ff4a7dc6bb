package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassesThroughDomainErrors(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewAlreadyConverted(7))

	domainErr := ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, CodeAlreadyConverted, domainErr.Code)
	assert.Equal(t, http.StatusConflict, domainErr.HTTPStatus)
	assert.Equal(t, int64(7), domainErr.Details["lead_id"])
}

func TestToDomainErrorMapsNoRowsToNotFound(t *testing.T) {
	domainErr := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, CodeNotFound, domainErr.Code)
	assert.Equal(t, http.StatusNotFound, domainErr.HTTPStatus)
}

func TestMapErrorWrapsStoreFailuresAsInfrastructure(t *testing.T) {
	storeErr := errors.New("connection reset by peer")

	err := MapError(storeErr)
	assert.True(t, IsInfrastructure(err))
	assert.True(t, IsCode(err, CodeInternal))
	assert.ErrorIs(t, err, storeErr)
	assert.Nil(t, MapError(nil))
}

func TestDomainKindsAreNotInfrastructure(t *testing.T) {
	cases := []error{
		NewNotFound("lead", nil),
		NewInvalidArgument("master case must be part of the merge set", nil),
		NewAlreadyConverted(1),
		NewConflict("duplicates found", nil),
	}
	for _, err := range cases {
		assert.False(t, IsInfrastructure(err), err.Error())
	}
	assert.False(t, IsInfrastructure(nil))
}

func TestNewNotFoundMessage(t *testing.T) {
	err := NewNotFound("case", map[string]any{"case_id": int64(3)})
	assert.EqualError(t, err, "case not found")
	assert.True(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(errors.New("plain"), CodeNotFound))
}
