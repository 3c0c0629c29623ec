package sql

import (
	"database/sql"
	"errors"
	"time"

	"newsletter/backend/internal/storage"
)

// ========== Session Repository ==========

// CacheSession 保存管理员会话
func (s *Store) CacheSession(sessionID string, adminID string, ttl time.Duration) error {
	query := s.rebind(`
		INSERT INTO sessions (id, admin_id, expires_at)
		VALUES (?, ?, ?)
	`)
	_, err := s.db.Exec(query, sessionID, adminID, time.Now().UTC().Add(ttl))
	return err
}

// GetCachedSession 获取会话对应的管理员 ID
func (s *Store) GetCachedSession(sessionID string) (string, error) {
	query := s.rebind(`
		SELECT admin_id
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`)

	var adminID string
	err := s.db.QueryRow(query, sessionID, time.Now().UTC()).Scan(&adminID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return adminID, nil
}

// DeleteCachedSession 删除会话
func (s *Store) DeleteCachedSession(sessionID string) error {
	query := s.rebind(`DELETE FROM sessions WHERE id = ?`)
	_, err := s.db.Exec(query, sessionID)
	return err
}
