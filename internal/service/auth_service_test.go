package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bob := createBob(t, env)
	_, err := env.users.Create(ctx, &UpsertUserRequest{UserID: ptr("nopass")})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		res, err := env.auth.Login(ctx, &LoginRequest{UserID: "bob", Password: "hunter22"}, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, bob.APIKey, res.APIKey)
		assert.Equal(t, "bob", res.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.auth.Login(ctx, &LoginRequest{UserID: "bob", Password: "wrong"}, "10.0.0.2")
		assert.True(t, errors.Is(err, ErrAuthenticationFailed))
	})

	t.Run("user without password", func(t *testing.T) {
		_, err := env.auth.Login(ctx, &LoginRequest{UserID: "nopass", Password: ""}, "10.0.0.3")
		assert.True(t, errors.Is(err, ErrAuthenticationFailed))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.auth.Login(ctx, &LoginRequest{UserID: "ghost", Password: "x"}, "10.0.0.4")
		assert.True(t, errors.Is(err, ErrAuthenticationFailed))
	})
}

func TestAuthService_LoginProtection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	createBob(t, env)
	ip := "198.51.100.1"

	for i := 0; i < 3; i++ {
		_, err := env.auth.Login(ctx, &LoginRequest{UserID: "bob", Password: "guess"}, ip)
		assert.True(t, errors.Is(err, ErrAuthenticationFailed))
	}

	// 封禁期内正确密码也被拒绝
	_, err := env.auth.Login(ctx, &LoginRequest{UserID: "bob", Password: "hunter22"}, ip)
	assert.True(t, errors.Is(err, ErrLoginBlocked))

	// 其他 IP 不受影响
	_, err = env.auth.Login(ctx, &LoginRequest{UserID: "bob", Password: "hunter22"}, "198.51.100.2")
	require.NoError(t, err)

	env.mr.FastForward(16 * time.Minute)
	_, err = env.auth.Login(ctx, &LoginRequest{UserID: "bob", Password: "hunter22"}, ip)
	require.NoError(t, err)
}
