package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"newsletter/backend/internal/storage"
)

// SessionStore Redis 会话存储实现
//
// 多实例部署时替代内嵌存储的会话表：任意实例建立的会话在其他实例上
// 同样可见，TTL 淘汰由 Redis 负责。
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore 创建 Redis 会话存储
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// sessionKey 会话键格式
func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// CacheSession 保存管理员会话
func (s *SessionStore) CacheSession(sessionID string, adminID string, ttl time.Duration) error {
	return s.client.Set(context.Background(), sessionKey(sessionID), adminID, ttl).Err()
}

// GetCachedSession 获取会话对应的管理员 ID
func (s *SessionStore) GetCachedSession(sessionID string) (string, error) {
	adminID, err := s.client.Get(context.Background(), sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return adminID, nil
}

// DeleteCachedSession 删除会话
func (s *SessionStore) DeleteCachedSession(sessionID string) error {
	return s.client.Del(context.Background(), sessionKey(sessionID)).Err()
}
