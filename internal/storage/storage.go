package storage

import (
	"errors"
	"time"

	"newsletter/backend/internal/domain"
)

var (
	// ErrSubscriberNotFound 订阅者未找到错误
	ErrSubscriberNotFound = errors.New("subscriber not found")
	// ErrEmailExists 邮箱已被其他订阅者占用错误
	ErrEmailExists = errors.New("email already exists")
	// ErrTokenNotFound 确认令牌未找到错误
	ErrTokenNotFound = errors.New("confirmation token not found")
	// ErrAdminNotFound 管理员未找到错误
	ErrAdminNotFound = errors.New("admin not found")
	// ErrUsernameExists 管理员用户名已存在错误
	ErrUsernameExists = errors.New("username already exists")
	// ErrReceiptNotFound 发布回执未找到错误
	ErrReceiptNotFound = errors.New("publish receipt not found")
	// ErrSessionNotFound 会话未找到或已过期错误
	ErrSessionNotFound = errors.New("session not found")
)

// SubscriberRepository 定义订阅者数据存取操作。
type SubscriberRepository interface {
	CreateSubscriber(sub *domain.Subscriber) error
	GetSubscriber(id string) (*domain.Subscriber, error)
	GetSubscriberByEmail(email string) (*domain.Subscriber, error)
	// MarkConfirmed 原子条件更新：仅当状态为 pending_confirmation 时置为
	// confirmed，返回本次调用是否真正发生了状态迁移。
	MarkConfirmed(id string) (bool, error)
	ListConfirmed() ([]domain.Subscriber, error)
}

// TokenRepository 定义确认令牌数据存取操作。
type TokenRepository interface {
	SaveToken(token *domain.ConfirmationToken) error
	GetToken(token string) (*domain.ConfirmationToken, error)
}

// AdminRepository 定义管理员账户数据存取操作。
type AdminRepository interface {
	CreateAdmin(admin *domain.Admin) error
	GetAdmin(id string) (*domain.Admin, error)
	GetAdminByUsername(username string) (*domain.Admin, error)
}

// PublishReceiptRepository 定义发布幂等回执数据存取操作。
type PublishReceiptRepository interface {
	CreateReceipt(receipt *domain.PublishReceipt) error
	GetReceipt(key string) (*domain.PublishReceipt, error)
	CompleteReceipt(receipt *domain.PublishReceipt) error
	// MarkDelivered 为 (key, subscriberID) 声明投递占位，返回本次调用
	// 是否抢到占位；已存在占位时返回 false。
	MarkDelivered(key, subscriberID string) (bool, error)
}

// SessionRepository 定义管理员会话管理操作。
type SessionRepository interface {
	CacheSession(sessionID string, adminID string, ttl time.Duration) error
	GetCachedSession(sessionID string) (string, error)
	DeleteCachedSession(sessionID string) error
}

// Store 定义完整的存储接口。
type Store interface {
	SubscriberRepository
	TokenRepository
	AdminRepository
	PublishReceiptRepository
	SessionRepository

	// 工具方法
	Close() error
	Health() error
}
