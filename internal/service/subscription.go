package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"newsletter/backend/internal/domain"
	"newsletter/backend/internal/mailer"
	"newsletter/backend/internal/storage"
)

var (
	// ErrConfirmationDelivery 确认邮件发送失败
	ErrConfirmationDelivery = errors.New("confirmation email delivery failed")
)

// tokenBytes 确认令牌的随机字节数，URL-safe base64 后为 32 字符
const tokenBytes = 24

// SubscriptionService 封装订阅与确认流程
type SubscriptionService struct {
	subscribers storage.SubscriberRepository
	tokens      storage.TokenRepository
	sender      mailer.EmailSender
	baseURL     string
	validator   *domain.EmailValidator
	logger      *zap.Logger
}

// NewSubscriptionService 创建订阅服务
//
// baseURL 是确认链接的外部可达前缀，不带尾部斜杠。
func NewSubscriptionService(
	subscribers storage.SubscriberRepository,
	tokens storage.TokenRepository,
	sender mailer.EmailSender,
	baseURL string,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscribers: subscribers,
		tokens:      tokens,
		sender:      sender,
		baseURL:     strings.TrimRight(baseURL, "/"),
		validator:   domain.NewEmailValidator(),
		logger:      logger,
	}
}

// Subscribe 登记订阅者并发送确认邮件
//
// 已确认的邮箱直接返回成功；待确认的邮箱重新签发令牌并重发邮件，
// 丢失确认邮件的访客重新提交表单即可补发。
func (s *SubscriptionService) Subscribe(ctx context.Context, name, email string) error {
	if err := domain.ValidateName(name); err != nil {
		return err
	}
	if err := s.validator.ValidateEmail(email); err != nil {
		return err
	}

	sub, err := s.resolveSubscriber(name, email)
	if err != nil {
		return err
	}
	if sub.IsConfirmed() {
		return nil
	}

	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.tokens.SaveToken(&domain.ConfirmationToken{
		Token:        token,
		SubscriberID: sub.ID,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	if err := s.sendConfirmation(ctx, sub, token); err != nil {
		// 订阅者保留在待确认状态，重新提交表单可补发
		s.logger.Warn("failed to send confirmation email",
			zap.String("subscriber_id", sub.ID),
			zap.Error(err))
		return ErrConfirmationDelivery
	}

	return nil
}

// resolveSubscriber 获取或创建订阅者记录
func (s *SubscriptionService) resolveSubscriber(name, email string) (*domain.Subscriber, error) {
	existing, err := s.subscribers.GetSubscriberByEmail(email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrSubscriberNotFound) {
		return nil, err
	}

	sub := &domain.Subscriber{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Status:    domain.StatusPendingConfirmation,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.subscribers.CreateSubscriber(sub); err != nil {
		// 并发提交同一邮箱时落败方复用先到者的记录
		if errors.Is(err, storage.ErrEmailExists) {
			return s.subscribers.GetSubscriberByEmail(email)
		}
		return nil, err
	}
	return sub, nil
}

// Confirm 用令牌将订阅者置为已确认
//
// 重复点击同一链接是幂等的。
func (s *SubscriptionService) Confirm(ctx context.Context, token string) error {
	record, err := s.tokens.GetToken(token)
	if err != nil {
		return err
	}

	transitioned, err := s.subscribers.MarkConfirmed(record.SubscriberID)
	if err != nil {
		return err
	}
	if transitioned {
		s.logger.Info("subscriber confirmed",
			zap.String("subscriber_id", record.SubscriberID))
	}
	return nil
}

// ConfirmationLink 确认链接格式
func (s *SubscriptionService) ConfirmationLink(token string) string {
	return fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", s.baseURL, token)
}

// sendConfirmation 发送确认邮件
func (s *SubscriptionService) sendConfirmation(ctx context.Context, sub *domain.Subscriber, token string) error {
	link := s.ConfirmationLink(token)
	htmlBody := fmt.Sprintf(
		"<p>%s，欢迎订阅！</p><p>请点击 <a href=%q>确认链接</a> 完成订阅。</p>",
		sub.Name, link)
	textBody := fmt.Sprintf("%s，欢迎订阅！\n请访问以下链接完成订阅：\n%s\n", sub.Name, link)

	return s.sender.Send(ctx, sub.Email, "请确认订阅", htmlBody, textBody)
}

// generateToken 生成 URL-safe 的确认令牌
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
