package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsletter/backend/internal/auth"
)

// BasicAuth Basic 认证中间件
//
// 面向机器客户端的发布端点使用；失败时带 WWW-Authenticate 质询返回 401。
type BasicAuth struct {
	authService *auth.Service
	log         *zap.Logger
}

// NewBasicAuth 创建 Basic 认证中间件
func NewBasicAuth(authService *auth.Service, log *zap.Logger) *BasicAuth {
	return &BasicAuth{
		authService: authService,
		log:         log,
	}
}

// RequireAuth 要求 Basic 认证
func (ba *BasicAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			ba.challenge(c)
			return
		}

		admin, err := ba.authService.ValidateCredentials(username, password)
		if err != nil {
			ba.log.Warn("basic auth rejected",
				zap.String("username", username),
				zap.String("ip", c.ClientIP()),
			)
			ba.challenge(c)
			return
		}

		c.Set("adminID", admin.ID)
		c.Next()
	}
}

// challenge 返回 401 质询
func (ba *BasicAuth) challenge(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="publish"`)
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "authentication required",
	})
	c.Abort()
}
