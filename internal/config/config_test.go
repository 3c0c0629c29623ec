package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NEWSLETTER_MAIL_SENDER", "news@example.com")
	t.Setenv("NEWSLETTER_SESSION_SECRET", "test-secret-at-least-32-characters!!")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, "news@example.com", cfg.Mail.Sender)
	assert.Equal(t, 8, cfg.Mail.FanoutWorkers)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Empty(t, cfg.Database.Type)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
}

func TestLoad_RejectsDefaultSecret(t *testing.T) {
	t.Setenv("NEWSLETTER_MAIL_SENDER", "news@example.com")
	t.Setenv("NEWSLETTER_SESSION_SECRET", "change-me-in-production")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	t.Setenv("NEWSLETTER_MAIL_SENDER", "news@example.com")
	t.Setenv("NEWSLETTER_SESSION_SECRET", "too-short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RequiresSender(t *testing.T) {
	t.Setenv("NEWSLETTER_MAIL_SENDER", "")
	t.Setenv("NEWSLETTER_SESSION_SECRET", "test-secret-at-least-32-characters!!")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NEWSLETTER_MAIL_SENDER", "news@example.com")
	t.Setenv("NEWSLETTER_SESSION_SECRET", "test-secret-at-least-32-characters!!")
	t.Setenv("NEWSLETTER_SERVER_PORT", "9090")
	t.Setenv("NEWSLETTER_SERVER_BASE_URL", "https://news.example.com/")
	t.Setenv("NEWSLETTER_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("NEWSLETTER_SESSION_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	// 尾部斜杠被去除
	assert.Equal(t, "https://news.example.com", cfg.Server.BaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
}
