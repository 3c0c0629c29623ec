package sql

import (
	"database/sql"
	"errors"
	"strings"

	"newsletter/backend/internal/domain"
	"newsletter/backend/internal/storage"
)

// ========== Admin Repository ==========

// CreateAdmin 创建管理员账户
func (s *Store) CreateAdmin(admin *domain.Admin) error {
	query := s.rebind(`
		INSERT INTO admins (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		admin.ID,
		strings.ToLower(admin.Username),
		admin.PasswordHash,
		admin.CreatedAt,
	)
	if isUniqueViolation(err) {
		return storage.ErrUsernameExists
	}
	return err
}

// GetAdmin 根据 ID 获取管理员
func (s *Store) GetAdmin(id string) (*domain.Admin, error) {
	query := s.rebind(`
		SELECT id, username, password_hash, created_at
		FROM admins
		WHERE id = ?
	`)
	return s.scanAdmin(s.db.QueryRow(query, id))
}

// GetAdminByUsername 根据用户名获取管理员
func (s *Store) GetAdminByUsername(username string) (*domain.Admin, error) {
	query := s.rebind(`
		SELECT id, username, password_hash, created_at
		FROM admins
		WHERE username = ?
	`)
	return s.scanAdmin(s.db.QueryRow(query, strings.ToLower(username)))
}

// scanAdmin 扫描单行管理员记录
func (s *Store) scanAdmin(row *sql.Row) (*domain.Admin, error) {
	var admin domain.Admin
	err := row.Scan(&admin.ID, &admin.Username, &admin.PasswordHash, &admin.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
