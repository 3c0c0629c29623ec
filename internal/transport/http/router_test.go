package httptransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"newsletter/backend/internal/auth"
	"newsletter/backend/internal/config"
	"newsletter/backend/internal/monitoring"
	"newsletter/backend/internal/service"
	"newsletter/backend/internal/storage/memory"
)

// recordingSender 记录发出的邮件
type recordingSender struct {
	mu     sync.Mutex
	sent   []recordedEmail
	failFn func(to string) error
}

type recordedEmail struct {
	To       string
	Subject  string
	TextBody string
}

func (r *recordingSender) Send(_ context.Context, to, subject, _, textBody string) error {
	if r.failFn != nil {
		if err := r.failFn(to); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, recordedEmail{To: to, Subject: subject, TextBody: textBody})
	return nil
}

func (r *recordingSender) all() []recordedEmail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEmail(nil), r.sent...)
}

// testEnv 端到端测试环境
type testEnv struct {
	router *gin.Engine
	store  *memory.Store
	sender *recordingSender
	authSv *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	sender := &recordingSender{}
	logger := zap.NewNop()

	cfg := &config.Config{
		Server: config.ServerConfig{BaseURL: "https://news.example.com"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
		Session: config.SessionConfig{
			Secret: "test-secret-at-least-32-characters!!",
			Issuer: "newsletter",
			TTL:    time.Hour,
		},
	}

	tokens := auth.NewTokenManager(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL)
	authService := auth.NewService(store, store, tokens)

	subscriptionService := service.NewSubscriptionService(store, store, sender, cfg.Server.BaseURL, logger)
	newsletterService := service.NewNewsletterService(store, store, sender, 4, logger)

	router := NewRouter(RouterDependencies{
		Config:              cfg,
		SubscriptionService: subscriptionService,
		NewsletterService:   newsletterService,
		AuthService:         authService,
		Store:               store,
		Metrics:             monitoring.NewMetrics(),
		Logger:              logger,
	})

	return &testEnv{router: router, store: store, sender: sender, authSv: authService}
}

// postForm 提交表单请求
func (e *testEnv) postForm(path string, form url.Values, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// postJSON 提交 JSON 请求
func (e *testEnv) postJSON(path, body string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// get 发送 GET 请求
func (e *testEnv) get(path string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// confirmationToken 从最后一封确认邮件中取出令牌
func (e *testEnv) confirmationToken(t *testing.T) string {
	t.Helper()
	sent := e.sender.all()
	require.NotEmpty(t, sent)
	body := sent[len(sent)-1].TextBody
	idx := strings.Index(body, "subscription_token=")
	require.GreaterOrEqual(t, idx, 0)
	token := body[idx+len("subscription_token="):]
	if end := strings.IndexAny(token, "\n <"); end >= 0 {
		token = token[:end]
	}
	return token
}

// createAdmin 创建管理员账户
func (e *testEnv) createAdmin(t *testing.T, username, password string) {
	t.Helper()
	_, err := e.authSv.CreateAdmin(username, password)
	require.NoError(t, err)
}

// sessionCookie 登录并返回会话 Cookie
func (e *testEnv) sessionCookie(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := e.postForm("/login", url.Values{
		"username": {username},
		"password": {password},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/admin/newsletters", w.Header().Get("Location"))

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "admin_session" && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatal("no session cookie set")
	return nil
}
