package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken 无效的会话令牌
	ErrInvalidToken = errors.New("invalid session token")
	// ErrExpiredToken 会话令牌已过期
	ErrExpiredToken = errors.New("session token expired")
)

// SessionClaims 会话 Cookie 的 JWT 声明
//
// 令牌只是会话 ID 的签名信封：真正的有效性以服务端会话记录为准，
// 删除记录即可让已签发的 Cookie 立刻失效。
type SessionClaims struct {
	SessionID string `json:"session_id"`
	AdminID   string `json:"admin_id"`
	jwt.RegisteredClaims
}

// TokenManager 会话令牌管理器
type TokenManager struct {
	secret []byte
	issuer string
	expiry time.Duration
}

// NewTokenManager 创建会话令牌管理器
func NewTokenManager(secret, issuer string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
	}
}

// Issue 为会话签发令牌
func (m *TokenManager) Issue(sessionID, adminID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		AdminID:   adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   adminID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate 验证令牌并返回声明
func (m *TokenManager) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Expiry 令牌有效期
func (m *TokenManager) Expiry() time.Duration {
	return m.expiry
}
