package memory

import (
	"strings"
	"sync"
	"time"

	"newsletter/backend/internal/domain"
	"newsletter/backend/internal/storage"
)

// Store 使用内存保存订阅者与发布数据，主要用于开发验证和测试。
type Store struct {
	mu          sync.RWMutex
	subscribers map[string]*domain.Subscriber        // subscriberID -> subscriber
	byEmail     map[string]string                    // email -> subscriberID
	tokens      map[string]*domain.ConfirmationToken // token -> token record
	admins      map[string]*domain.Admin             // adminID -> admin
	byUsername  map[string]string                    // username -> adminID
	receipts    map[string]*domain.PublishReceipt    // key -> receipt
	deliveries  map[string]map[string]struct{}       // key -> subscriberID 占位集合
	sessions    map[string]*sessionEntry             // sessionID -> session
}

// sessionEntry 会话条目
type sessionEntry struct {
	AdminID   string
	ExpiresAt time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		subscribers: make(map[string]*domain.Subscriber),
		byEmail:     make(map[string]string),
		tokens:      make(map[string]*domain.ConfirmationToken),
		admins:      make(map[string]*domain.Admin),
		byUsername:  make(map[string]string),
		receipts:    make(map[string]*domain.PublishReceipt),
		deliveries:  make(map[string]map[string]struct{}),
		sessions:    make(map[string]*sessionEntry),
	}
}

// ========== Subscriber Repository ==========

// CreateSubscriber 保存新的订阅者。
func (s *Store) CreateSubscriber(sub *domain.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(sub.Email)
	if _, ok := s.byEmail[email]; ok {
		return storage.ErrEmailExists
	}

	cp := *sub
	s.subscribers[sub.ID] = &cp
	s.byEmail[email] = sub.ID
	return nil
}

// GetSubscriber 根据 ID 获取订阅者。
func (s *Store) GetSubscriber(id string) (*domain.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscribers[id]
	if !ok {
		return nil, storage.ErrSubscriberNotFound
	}
	cp := *sub
	return &cp, nil
}

// GetSubscriberByEmail 根据邮箱地址获取订阅者。
func (s *Store) GetSubscriberByEmail(email string) (*domain.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrSubscriberNotFound
	}
	cp := *s.subscribers[id]
	return &cp, nil
}

// MarkConfirmed 将订阅者置为已确认状态。
//
// 条件更新在写锁内完成，并发确认同一订阅者时只有一次调用返回 true，
// 其余调用观察到终态后无操作返回。
func (s *Store) MarkConfirmed(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscribers[id]
	if !ok {
		return false, storage.ErrSubscriberNotFound
	}

	if sub.Status != domain.StatusPendingConfirmation {
		return false, nil
	}

	now := time.Now().UTC()
	sub.Status = domain.StatusConfirmed
	sub.ConfirmedAt = &now
	return true, nil
}

// ListConfirmed 返回全部已确认订阅者的快照。
func (s *Store) ListConfirmed() ([]domain.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Subscriber, 0)
	for _, sub := range s.subscribers {
		if sub.Status == domain.StatusConfirmed {
			result = append(result, *sub)
		}
	}
	return result, nil
}

// ========== Token Repository ==========

// SaveToken 保存确认令牌。
func (s *Store) SaveToken(token *domain.ConfirmationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.tokens[token.Token] = &cp
	return nil
}

// GetToken 根据令牌值获取令牌记录。
func (s *Store) GetToken(token string) (*domain.ConfirmationToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.tokens[token]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}
	cp := *record
	return &cp, nil
}

// ========== Admin Repository ==========

// CreateAdmin 保存新的管理员账户。
func (s *Store) CreateAdmin(admin *domain.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(admin.Username)
	if _, ok := s.byUsername[username]; ok {
		return storage.ErrUsernameExists
	}

	cp := *admin
	s.admins[admin.ID] = &cp
	s.byUsername[username] = admin.ID
	return nil
}

// GetAdmin 根据 ID 获取管理员。
func (s *Store) GetAdmin(id string) (*domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin, ok := s.admins[id]
	if !ok {
		return nil, storage.ErrAdminNotFound
	}
	cp := *admin
	return &cp, nil
}

// GetAdminByUsername 根据用户名获取管理员。
func (s *Store) GetAdminByUsername(username string) (*domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, storage.ErrAdminNotFound
	}
	cp := *s.admins[id]
	return &cp, nil
}

// ========== Publish Receipt Repository ==========

// CreateReceipt 保存新的发布回执。
func (s *Store) CreateReceipt(receipt *domain.PublishReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *receipt
	s.receipts[receipt.Key] = &cp
	if _, ok := s.deliveries[receipt.Key]; !ok {
		s.deliveries[receipt.Key] = make(map[string]struct{})
	}
	return nil
}

// GetReceipt 根据幂等键获取发布回执。
func (s *Store) GetReceipt(key string) (*domain.PublishReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipt, ok := s.receipts[key]
	if !ok {
		return nil, storage.ErrReceiptNotFound
	}
	cp := *receipt
	return &cp, nil
}

// CompleteReceipt 写入回执的最终计数并标记完成。
func (s *Store) CompleteReceipt(receipt *domain.PublishReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.receipts[receipt.Key]
	if !ok {
		return storage.ErrReceiptNotFound
	}

	now := time.Now().UTC()
	existing.Delivered = receipt.Delivered
	existing.Skipped = receipt.Skipped
	existing.Failed = receipt.Failed
	existing.CompletedAt = &now
	return nil
}

// MarkDelivered 为 (key, subscriberID) 声明投递占位。
func (s *Store) MarkDelivered(key, subscriberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.deliveries[key]
	if !ok {
		set = make(map[string]struct{})
		s.deliveries[key] = set
	}

	if _, claimed := set[subscriberID]; claimed {
		return false, nil
	}
	set[subscriberID] = struct{}{}
	return true, nil
}

// ========== Session Repository ==========

// CacheSession 保存管理员会话。
func (s *Store) CacheSession(sessionID string, adminID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = &sessionEntry{
		AdminID:   adminID,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

// GetCachedSession 获取会话对应的管理员 ID。
func (s *Store) GetCachedSession(sessionID string) (string, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return "", storage.ErrSessionNotFound
	}
	if time.Now().After(entry.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return "", storage.ErrSessionNotFound
	}
	return entry.AdminID, nil
}

// DeleteCachedSession 删除会话。
func (s *Store) DeleteCachedSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Close 关闭存储（内存实现为空操作）。
func (s *Store) Close() error {
	return nil
}

// Health 检查存储健康状态（内存实现恒为健康）。
func (s *Store) Health() error {
	return nil
}
