package domain

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

// 验证相关的错误定义
var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrEmailTooLong     = errors.New("email address too long")
	ErrLocalPartTooLong = errors.New("local part too long (max 64 chars)")
	ErrDomainTooLong    = errors.New("domain too long (max 253 chars)")
	ErrInvalidDomain    = errors.New("invalid domain format")
	ErrEmptyName        = errors.New("name must not be empty")
	ErrNameTooLong      = errors.New("name too long (max 256 chars)")
	ErrInvalidName      = errors.New("name contains forbidden characters")
	ErrPasswordTooShort = errors.New("password too short (min 8 chars)")
	ErrPasswordTooLong  = errors.New("password too long (max 128 chars)")
	ErrInvalidUsername  = errors.New("invalid username format")
)

// 验证常量
const (
	// RFC 5322 邮箱地址长度限制
	MaxEmailLength     = 254 // 整个邮箱地址最大长度
	MaxLocalPartLength = 64  // 本地部分最大长度(@前面)
	MaxDomainLength    = 253 // 域名最大长度

	// 显示名长度限制
	MaxNameLength = 256

	// 密码长度限制
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// 域名验证（支持子域名）
var domainRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,61}[a-zA-Z0-9]?(\.[a-zA-Z0-9][a-zA-Z0-9-]{0,61}[a-zA-Z0-9]?)+$`)

// 用户名验证（必须以字母开头）
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]{2,31}$`)

// 显示名中禁止出现的字符（防止头部注入与标记注入）
const forbiddenNameChars = `/()"<>\{}`

// EmailValidator 订阅者邮箱验证器
type EmailValidator struct{}

// NewEmailValidator 创建邮箱验证器
func NewEmailValidator() *EmailValidator {
	return &EmailValidator{}
}

// ValidateEmail 完整验证邮箱地址
func (v *EmailValidator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)

	// 长度检查
	if email == "" {
		return ErrInvalidEmail
	}
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}

	// 使用标准库进行基础格式验证
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}

	// 分离本地部分和域名
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	localPart := email[:at]
	domain := email[at+1:]

	if len(localPart) > MaxLocalPartLength {
		return ErrLocalPartTooLong
	}

	return v.ValidateDomain(domain)
}

// ValidateDomain 验证域名部分
func (v *EmailValidator) ValidateDomain(domain string) error {
	if domain == "" {
		return ErrInvalidDomain
	}

	if len(domain) > MaxDomainLength {
		return ErrDomainTooLong
	}

	if !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}

	// 检查每个标签的长度（不超过63字符）
	for _, label := range strings.Split(domain, ".") {
		if len(label) > 63 {
			return ErrInvalidDomain
		}
	}

	return nil
}

// ValidateName 验证订阅者显示名
//
// 非空、长度受限，且不允许控制字符与注入类字符。
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}

	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}

	for _, r := range name {
		if r < 32 || r == 127 {
			return ErrInvalidName
		}
		if strings.ContainsRune(forbiddenNameChars, r) {
			return ErrInvalidName
		}
	}

	return nil
}

// ValidateUsername 验证管理员用户名
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidatePassword 验证管理员密码强度
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
