package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"golang.org/x/time/rate"

	"newsletter/backend/internal/domain"
)

// EmailSender 邮件发送接口
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// SMTPSender 通过上游 SMTP 中继发送邮件
//
// 群发走同一个限速器，避免触发中继方的速率封禁。
type SMTPSender struct {
	addr     string
	username string
	password string
	sender   string
	limiter  *rate.Limiter
}

// NewSMTPSender 创建 SMTP 发送器
//
// 参数:
//   - addr: 中继地址（host:port）
//   - username/password: 认证凭据，留空表示匿名投递
//   - sender: 信封与 From 头使用的发件地址
//   - sendRate: 每秒最大发送数，0 表示不限速
func NewSMTPSender(addr, username, password, sender string, sendRate int) (*SMTPSender, error) {
	validator := domain.NewEmailValidator()
	if err := validator.ValidateEmail(sender); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}

	limit := rate.Inf
	if sendRate > 0 {
		limit = rate.Limit(sendRate)
	}

	return &SMTPSender{
		addr:     addr,
		username: username,
		password: password,
		sender:   sender,
		limiter:  rate.NewLimiter(limit, 1),
	}, nil
}

// Send 发送一封邮件
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	msg, err := buildMessage(s.sender, to, subject, htmlBody, textBody)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	var auth sasl.Client
	if s.username != "" {
		auth = sasl.NewPlainClient("", s.username, s.password)
	}

	if err := gosmtp.SendMail(s.addr, auth, s.sender, []string{to}, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
