package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"newsletter/backend/internal/domain"
	"newsletter/backend/internal/storage"
)

var (
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionRevoked 会话已撤销
	ErrSessionRevoked = errors.New("session revoked")
)

// placeholderHash 未知用户名时用于比较的占位哈希
//
// 保证无论用户名是否存在都执行一次 bcrypt 比较，拉平响应时间。
const placeholderHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service 管理员认证服务
type Service struct {
	admins   storage.AdminRepository
	sessions storage.SessionRepository
	tokens   *TokenManager
}

// NewService 创建认证服务
func NewService(admins storage.AdminRepository, sessions storage.SessionRepository, tokens *TokenManager) *Service {
	return &Service{
		admins:   admins,
		sessions: sessions,
		tokens:   tokens,
	}
}

// CreateAdmin 创建管理员账户
func (s *Service) CreateAdmin(username, password string) (*domain.Admin, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &domain.Admin{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.admins.CreateAdmin(admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// ValidateCredentials 校验用户名和密码
//
// 用户名不存在时仍对占位哈希做比较，失败路径耗时一致。
func (s *Service) ValidateCredentials(username, password string) (*domain.Admin, error) {
	admin, err := s.admins.GetAdminByUsername(username)
	if err != nil {
		if errors.Is(err, storage.ErrAdminNotFound) {
			_ = CheckPassword(password, placeholderHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

// StartSession 建立会话并签发 Cookie 令牌
func (s *Service) StartSession(adminID string) (string, error) {
	sessionID := uuid.New().String()

	if err := s.sessions.CacheSession(sessionID, adminID, s.tokens.Expiry()); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	token, err := s.tokens.Issue(sessionID, adminID)
	if err != nil {
		return "", err
	}
	return token, nil
}

// ResolveSession 从 Cookie 令牌解析出管理员 ID
//
// 签名有效但服务端记录已删除（登出或过期清理）的令牌视为已撤销。
func (s *Service) ResolveSession(tokenString string) (string, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return "", err
	}

	adminID, err := s.sessions.GetCachedSession(claims.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return "", ErrSessionRevoked
		}
		return "", err
	}

	if adminID != claims.AdminID {
		return "", ErrInvalidToken
	}
	return adminID, nil
}

// EndSession 撤销令牌对应的会话
func (s *Service) EndSession(tokenString string) error {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return err
	}
	return s.sessions.DeleteCachedSession(claims.SessionID)
}

// HashPassword 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 检查密码是否匹配
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
