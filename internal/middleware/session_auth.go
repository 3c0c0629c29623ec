package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsletter/backend/internal/auth"
)

// SessionCookieName 会话 Cookie 名
const SessionCookieName = "admin_session"

// SessionAuth 会话认证中间件
//
// 面向浏览器的 /admin 路径使用；未认证时重定向到登录页而不是返回 401。
type SessionAuth struct {
	authService *auth.Service
	log         *zap.Logger
}

// NewSessionAuth 创建会话认证中间件
func NewSessionAuth(authService *auth.Service, log *zap.Logger) *SessionAuth {
	return &SessionAuth{
		authService: authService,
		log:         log,
	}
}

// RequireSession 要求有效的管理员会话
func (sa *SessionAuth) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err != nil || token == "" {
			sa.redirectToLogin(c)
			return
		}

		adminID, err := sa.authService.ResolveSession(token)
		if err != nil {
			sa.log.Warn("session rejected",
				zap.String("ip", c.ClientIP()),
				zap.Error(err),
			)
			sa.redirectToLogin(c)
			return
		}

		c.Set("adminID", adminID)
		c.Next()
	}
}

// redirectToLogin 重定向到登录页
func (sa *SessionAuth) redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/login")
	c.Abort()
}
