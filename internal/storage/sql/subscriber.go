package sql

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"newsletter/backend/internal/domain"
	"newsletter/backend/internal/storage"
)

// ========== Subscriber Repository ==========

// CreateSubscriber 创建新的订阅者
func (s *Store) CreateSubscriber(sub *domain.Subscriber) error {
	query := s.rebind(`
		INSERT INTO subscribers (id, email, name, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		sub.ID,
		strings.ToLower(sub.Email),
		sub.Name,
		sub.Status,
		sub.CreatedAt,
	)
	if isUniqueViolation(err) {
		return storage.ErrEmailExists
	}
	return err
}

// GetSubscriber 根据 ID 获取订阅者
func (s *Store) GetSubscriber(id string) (*domain.Subscriber, error) {
	query := s.rebind(`
		SELECT id, email, name, status, created_at, confirmed_at
		FROM subscribers
		WHERE id = ?
	`)
	return s.scanSubscriber(s.db.QueryRow(query, id))
}

// GetSubscriberByEmail 根据邮箱地址获取订阅者
func (s *Store) GetSubscriberByEmail(email string) (*domain.Subscriber, error) {
	query := s.rebind(`
		SELECT id, email, name, status, created_at, confirmed_at
		FROM subscribers
		WHERE email = ?
	`)
	return s.scanSubscriber(s.db.QueryRow(query, strings.ToLower(email)))
}

// MarkConfirmed 原子条件更新订阅者状态为已确认
func (s *Store) MarkConfirmed(id string) (bool, error) {
	query := s.rebind(`
		UPDATE subscribers
		SET status = ?, confirmed_at = ?
		WHERE id = ? AND status = ?
	`)
	result, err := s.db.Exec(query,
		domain.StatusConfirmed,
		time.Now().UTC(),
		id,
		domain.StatusPendingConfirmation,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	// 没有行受影响：要么已是终态，要么订阅者不存在
	if _, err := s.GetSubscriber(id); err != nil {
		return false, err
	}
	return false, nil
}

// ListConfirmed 返回全部已确认订阅者
func (s *Store) ListConfirmed() ([]domain.Subscriber, error) {
	query := s.rebind(`
		SELECT id, email, name, status, created_at, confirmed_at
		FROM subscribers
		WHERE status = ?
	`)
	rows, err := s.db.Query(query, domain.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subscribers := make([]domain.Subscriber, 0)
	for rows.Next() {
		var sub domain.Subscriber
		var confirmedAt sql.NullTime
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.Name, &sub.Status, &sub.CreatedAt, &confirmedAt); err != nil {
			return nil, err
		}
		if confirmedAt.Valid {
			sub.ConfirmedAt = &confirmedAt.Time
		}
		subscribers = append(subscribers, sub)
	}
	return subscribers, rows.Err()
}

// scanSubscriber 扫描单行订阅者记录
func (s *Store) scanSubscriber(row *sql.Row) (*domain.Subscriber, error) {
	var sub domain.Subscriber
	var confirmedAt sql.NullTime

	err := row.Scan(&sub.ID, &sub.Email, &sub.Name, &sub.Status, &sub.CreatedAt, &confirmedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, err
	}

	if confirmedAt.Valid {
		sub.ConfirmedAt = &confirmedAt.Time
	}
	return &sub, nil
}

// isUniqueViolation 判断错误是否为唯一约束冲突
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") || // MySQL 1062
		strings.Contains(msg, "duplicate key value") // PostgreSQL 23505
}
