package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

func newTestAuthService(f *fixture) *AuthService {
	return NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 30,
		BcryptCost:            bcrypt.MinCost,
	}, f.deps.Repos.Users, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuthService(f)

	user, err := svc.Register(f.ctx, RegisterInput{Username: "dana", Email: " Dana@Example.com ", Password: "s3cret-pass", FirstName: "Dana"})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", user.Email)
	assert.Equal(t, domain.UserRoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	logged, token, err := svc.Login(f.ctx, "dana", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotEmpty(t, token.Value)
	assert.Equal(t, user.ID, token.UserID)

	claims, err := svc.TokenManager().ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegisterRejectsTakenIdentity(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuthService(f)

	_, err := svc.Register(f.ctx, RegisterInput{Username: "alice", Email: "new@example.com", Password: "password1"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	_, err = svc.Register(f.ctx, RegisterInput{Username: "newbie", Email: "ALICE@example.com", Password: "password1"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	_, err = svc.Register(f.ctx, RegisterInput{Username: "newbie", Email: "newbie@example.com", Password: "short"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = svc.Register(f.ctx, RegisterInput{Username: "newbie", Email: "newbie@example.com", Password: "password1", Role: "owner"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestLoginFailuresLookAlike(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuthService(f)
	_, err := svc.Register(f.ctx, RegisterInput{Username: "erin", Email: "erin@example.com", Password: "password1"})
	require.NoError(t, err)

	_, _, wrongPassword := svc.Login(f.ctx, "erin", "password2")
	_, _, unknownUser := svc.Login(f.ctx, "nobody", "password1")
	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.True(t, apperrors.IsCode(wrongPassword, apperrors.CodeUnauthorized))
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	erin, err := f.deps.Repos.Users.GetByUsername(f.ctx, "erin")
	require.NoError(t, err)
	erin.IsActive = false
	require.NoError(t, f.deps.Repos.Users.Update(f.ctx, erin))
	_, _, inactive := svc.Login(f.ctx, "erin", "password1")
	assert.True(t, apperrors.IsCode(inactive, apperrors.CodeUnauthorized))
}

func TestUpdateUserRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuthService(f)
	inactive := false

	_, err := svc.UpdateUser(f.ctx, &f.salesA, f.salesB.ID, UserAdminUpdate{IsActive: &inactive})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = svc.UpdateUser(f.ctx, &f.actor, f.actor.ID, UserAdminUpdate{IsActive: &inactive})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	updated, err := svc.UpdateUser(f.ctx, &f.actor, f.salesB.ID, UserAdminUpdate{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	pool, err := f.deps.Repos.Users.ListActiveIDs(f.ctx, domain.UserRoleUser)
	require.NoError(t, err)
	assert.NotContains(t, pool, f.salesB.ID)
}
