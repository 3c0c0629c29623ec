package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter/backend/internal/storage"
	"newsletter/backend/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	store := memory.NewStore()
	tokens := NewTokenManager("test-secret-at-least-32-characters!!", "newsletter", time.Hour)
	return NewService(store, store, tokens), store
}

func TestService_CreateAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	admin, err := svc.CreateAdmin("editor", "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, admin.ID)
	assert.Equal(t, "editor", admin.Username)
	assert.NotEqual(t, "correct horse battery", admin.PasswordHash)

	// 重复用户名
	_, err = svc.CreateAdmin("editor", "another password")
	assert.ErrorIs(t, err, storage.ErrUsernameExists)

	// 弱密码
	_, err = svc.CreateAdmin("editor2", "short")
	assert.Error(t, err)
}

func TestService_ValidateCredentials(t *testing.T) {
	svc, _ := newTestService(t)

	admin, err := svc.CreateAdmin("editor", "correct horse battery")
	require.NoError(t, err)

	got, err := svc.ValidateCredentials("editor", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	// 密码错误与用户名不存在返回同一个错误
	_, err = svc.ValidateCredentials("editor", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.ValidateCredentials("nobody", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_SessionLifecycle(t *testing.T) {
	svc, _ := newTestService(t)

	admin, err := svc.CreateAdmin("editor", "correct horse battery")
	require.NoError(t, err)

	token, err := svc.StartSession(admin.ID)
	require.NoError(t, err)

	adminID, err := svc.ResolveSession(token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, adminID)

	// 登出后同一令牌解析失败
	require.NoError(t, svc.EndSession(token))
	_, err = svc.ResolveSession(token)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestService_ResolveSession_BadToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ResolveSession("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// 换密钥签的令牌无效
	other := NewTokenManager("another-secret-also-32-characters!!!", "newsletter", time.Hour)
	forged, err := other.Issue("session-1", "admin-1")
	require.NoError(t, err)
	_, err = svc.ResolveSession(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Expired(t *testing.T) {
	tokens := NewTokenManager("test-secret-at-least-32-characters!!", "newsletter", -time.Minute)
	token, err := tokens.Issue("session-1", "admin-1")
	require.NoError(t, err)

	_, err = tokens.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
