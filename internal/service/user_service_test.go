package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserTestService(t *testing.T) (UserService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	userRepo := repository.NewUserRepository(env.db)
	refreshRepo := repository.NewRefreshTokenRepository(env.db)
	return NewUserService(userRepo, refreshRepo), env
}

func TestLoginAndRefresh(t *testing.T) {
	svc, env := newUserTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "alex",
		Email:    "alex@pharmacy.test",
		Phone:    "0123456789",
		Password: "secret123",
		Role:     "pharmacist",
	})
	require.NoError(t, err)

	tokens, err := svc.Login(ctx, LoginUserRequest{Email: "alex@pharmacy.test", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)

	t.Run("refresh rotates the token", func(t *testing.T) {
		rotated, err := svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
		require.NoError(t, err)
		assert.NotEmpty(t, rotated.Token)
		assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

		// The consumed token is gone.
		_, err = svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
		require.Error(t, err)

		// Logout revokes the rotated one.
		require.NoError(t, svc.Logout(ctx, rotated.RefreshToken))
		var count int64
		require.NoError(t, env.db.Model(&model.RefreshToken{}).Count(&count).Error)
		assert.EqualValues(t, 0, count)
	})
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newUserTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "sam",
		Email:    "sam@pharmacy.test",
		Phone:    "0123456789",
		Password: "secret123",
		Role:     "staff",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginUserRequest{Email: "sam@pharmacy.test", Password: "wrong"})
	assert.Error(t, err)

	_, err = svc.Login(ctx, LoginUserRequest{Email: "nobody@pharmacy.test", Password: "secret123"})
	assert.Error(t, err)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newUserTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "eve",
		Email:    "eve@pharmacy.test",
		Phone:    "0123456789",
		Password: "secret123",
		Role:     "superuser",
	})
	assert.Error(t, err)
}
