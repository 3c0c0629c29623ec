package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsletter/backend/internal/auth"
	"newsletter/backend/internal/middleware"
)

// AuthHandler 管理员登录处理器
type AuthHandler struct {
	authService *auth.Service
	cookieTTL   int // 秒
	log         *zap.Logger
}

// NewAuthHandler 创建登录处理器
func NewAuthHandler(authService *auth.Service, cookieTTLSeconds int, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookieTTL:   cookieTTLSeconds,
		log:         log,
	}
}

// loginForm 登录表单
type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// loginPage 登录页
const loginPage = `<!DOCTYPE html>
<html lang="zh">
<head><meta charset="utf-8"><title>登录</title></head>
<body>
<h1>管理员登录</h1>
<form method="post" action="/login">
  <p><label>用户名 <input type="text" name="username"></label></p>
  <p><label>密码 <input type="password" name="password"></label></p>
  <p><button type="submit">登录</button></p>
</form>
</body>
</html>`

// LoginPage 渲染登录页
func (h *AuthHandler) LoginPage(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, loginPage)
}

// Login 处理登录表单
//
// 凭证错误时回到登录页而不泄露具体原因。
func (h *AuthHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	admin, err := h.authService.ValidateCredentials(form.Username, form.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.log.Error("credential check failed", zap.Error(err))
		}
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	token, err := h.authService.StartSession(admin.ID)
	if err != nil {
		h.log.Error("failed to start session", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	c.SetCookie(middleware.SessionCookieName, token, h.cookieTTL, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/admin/newsletters")
}

// Logout 销毁会话
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(middleware.SessionCookieName); err == nil && token != "" {
		if err := h.authService.EndSession(token); err != nil {
			h.log.Warn("failed to end session", zap.Error(err))
		}
	}

	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/login")
}
