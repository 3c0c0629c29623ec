package httptransport

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter/backend/internal/domain"
)

const publishBody = `{"title":"本周要闻","content":{"text":"plain body","html":"<p>html body</p>"}}`

// seedConfirmed 写入一条已确认的订阅者记录
func seedConfirmed(t *testing.T, env *testEnv, id, email string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, env.store.CreateSubscriber(&domain.Subscriber{
		ID:          id,
		Email:       email,
		Name:        "subscriber " + id,
		Status:      domain.StatusConfirmed,
		CreatedAt:   now,
		ConfirmedAt: &now,
	}))
}

func withBasicAuth(username, password string) func(*http.Request) {
	return func(req *http.Request) {
		req.SetBasicAuth(username, password)
	}
}

func TestPublish_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "editor", "correct horse battery")

	// 无凭证
	w := env.postJSON("/newsletters", publishBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Basic realm="publish"`, w.Header().Get("WWW-Authenticate"))

	// 未知用户名
	w = env.postJSON("/newsletters", publishBody, withBasicAuth("nobody", "whatever"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Basic realm="publish"`, w.Header().Get("WWW-Authenticate"))

	// 密码错误
	w = env.postJSON("/newsletters", publishBody, withBasicAuth("editor", "wrong password"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Basic realm="publish"`, w.Header().Get("WWW-Authenticate"))

	assert.Empty(t, env.sender.all())
}

func TestPublish_FanOutToConfirmed(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "editor", "correct horse battery")
	seedConfirmed(t, env, "c0", "c0@example.com")
	seedConfirmed(t, env, "c1", "c1@example.com")

	w := env.postJSON("/newsletters", publishBody, withBasicAuth("editor", "correct horse battery"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data domain.PublishSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Delivered)
	assert.False(t, resp.Data.Reused)

	sent := env.sender.all()
	require.Len(t, sent, 2)
	for _, mail := range sent {
		assert.Equal(t, "本周要闻", mail.Subject)
	}
}

func TestPublish_UnconfirmedGetNothing(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "editor", "correct horse battery")

	// 订阅但不确认
	w := env.postForm("/subscriptions", url.Values{
		"name":  {"le guin"},
		"email": {"ursula_le_guin@gmail.com"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	confirmations := len(env.sender.all())

	w = env.postJSON("/newsletters", publishBody, withBasicAuth("editor", "correct horse battery"))
	require.Equal(t, http.StatusOK, w.Code)

	// 只有确认邮件，没有简报
	assert.Len(t, env.sender.all(), confirmations)
}

func TestPublish_IdempotencyKeyShortCircuits(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "editor", "correct horse battery")
	seedConfirmed(t, env, "c0", "c0@example.com")

	withKey := func(req *http.Request) {
		req.SetBasicAuth("editor", "correct horse battery")
		req.Header.Set("Idempotency-Key", "issue-2026-08")
	}

	w := env.postJSON("/newsletters", publishBody, withKey)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.postJSON("/newsletters", publishBody, withKey)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data domain.PublishSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Reused)

	assert.Len(t, env.sender.all(), 1)
}

func TestPublish_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "editor", "correct horse battery")

	cases := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"missing title", `{"content":{"text":"body"}}`},
		{"empty content", `{"title":"t","content":{"text":"","html":""}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.postJSON("/newsletters", tc.body, withBasicAuth("editor", "correct horse battery"))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAdminPublish_SessionFlow(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "editor", "correct horse battery")
	seedConfirmed(t, env, "c0", "c0@example.com")

	cookie := env.sessionCookie(t, "editor", "correct horse battery")

	form := url.Values{
		"title":           {"本周要闻"},
		"text_content":    {"plain body"},
		"html_content":    {"<p>html body</p>"},
		"idempotency_key": {"form-issue-1"},
	}
	withCookie := func(req *http.Request) { req.AddCookie(cookie) }

	w := env.postForm("/admin/newsletters", form, withCookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/newsletters", w.Header().Get("Location"))
	assert.Len(t, env.sender.all(), 1)

	// 表单重复提交（同一幂等键）不再投递
	w = env.postForm("/admin/newsletters", form, withCookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Len(t, env.sender.all(), 1)
}

func TestAdminPublish_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.postForm("/admin/newsletters", url.Values{"title": {"t"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = env.get("/admin/newsletters")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "editor", "correct horse battery")

	w := env.postForm("/login", url.Values{
		"username": {"editor"},
		"password": {"wrong password"},
	})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestEnv(t)
	env.createAdmin(t, "editor", "correct horse battery")
	cookie := env.sessionCookie(t, "editor", "correct horse battery")
	withCookie := func(req *http.Request) { req.AddCookie(cookie) }

	w := env.postForm("/admin/logout", url.Values{}, withCookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	// 旧 Cookie 不再可用
	w = env.get("/admin/newsletters", withCookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}
