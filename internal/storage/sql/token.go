package sql

import (
	"database/sql"
	"errors"

	"newsletter/backend/internal/domain"
	"newsletter/backend/internal/storage"
)

// ========== Token Repository ==========

// SaveToken 保存确认令牌
func (s *Store) SaveToken(token *domain.ConfirmationToken) error {
	query := s.rebind(`
		INSERT INTO confirmation_tokens (token, subscriber_id, created_at)
		VALUES (?, ?, ?)
	`)
	_, err := s.db.Exec(query, token.Token, token.SubscriberID, token.CreatedAt)
	return err
}

// GetToken 根据令牌值获取令牌记录
func (s *Store) GetToken(token string) (*domain.ConfirmationToken, error) {
	query := s.rebind(`
		SELECT token, subscriber_id, created_at
		FROM confirmation_tokens
		WHERE token = ?
	`)

	var record domain.ConfirmationToken
	err := s.db.QueryRow(query, token).Scan(&record.Token, &record.SubscriberID, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
