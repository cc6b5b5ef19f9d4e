package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagetags/apperrors"
	"pagetags/auth"
)

func TestCreateUser(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "user1", "password")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "password", user.Password)
	assert.NotEmpty(t, user.JTI)

	_, err = s.CreateUser(ctx, "user1", "other")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
	assert.Equal(t, 409, apperrors.From(err).HTTPStatus())

	_, err = s.CreateUser(ctx, strings.Repeat("u", 21), "password")
	assert.True(t, apperrors.IsValidation(err))

	_, err = s.CreateUser(ctx, "user2", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthenticateUser(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "user1", "password")
	require.NoError(t, err)

	user, err := s.AuthenticateUser(ctx, "user1", "password")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, created.ID, user.ID)

	user, err = s.AuthenticateUser(ctx, "user1", "wrong")
	assert.NoError(t, err)
	assert.Nil(t, user)

	user, err = s.AuthenticateUser(ctx, "nobody", "password")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestChangePassword_RevokesEarlierTokens(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	issuer := auth.NewTokenIssuer("test-secret", 0)

	user, err := s.CreateUser(ctx, "user1", "password")
	require.NoError(t, err)

	token, err := issuer.Issue(user.ID, user.JTI)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Identity)

	found, err := s.AuthenticateJTI(ctx, claims.Identity, claims.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "user1", found.Username)

	changed, err := s.ChangePassword(ctx, "user1", "new-password")
	require.NoError(t, err)
	assert.NotEqual(t, user.JTI, changed.JTI)

	found, err = s.AuthenticateJTI(ctx, claims.Identity, claims.ID)
	require.NoError(t, err)
	assert.Nil(t, found, "token issued before the change is rejected")

	found, err = s.AuthenticateUser(ctx, "user1", "new-password")
	require.NoError(t, err)
	assert.NotNil(t, found)

	_, err = s.ChangePassword(ctx, "nobody", "x")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUserLookupAndDelete(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zed", "amy"} {
		_, err := s.CreateUser(ctx, name, "password")
		require.NoError(t, err)
	}

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "amy", users[0].Username)

	byName, err := s.GetUserByUsername(ctx, "zed")
	require.NoError(t, err)
	byID, err := s.GetUserByID(ctx, byName.ID)
	require.NoError(t, err)
	assert.Equal(t, "zed", byID.Username)

	require.NoError(t, s.DeleteUser(ctx, "zed"))
	_, err = s.GetUserByUsername(ctx, "zed")
	assert.True(t, apperrors.IsNotFound(err))

	err = s.DeleteUser(ctx, "zed")
	assert.True(t, apperrors.IsNotFound(err))
}
