package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"newsletter/backend/internal/domain"
	"newsletter/backend/internal/mailer"
	"newsletter/backend/internal/storage"
)

var (
	// ErrEmptyTitle 简报标题为空
	ErrEmptyTitle = errors.New("newsletter title is empty")
	// ErrEmptyContent 简报内容为空
	ErrEmptyContent = errors.New("newsletter content is empty")
	// ErrKeyTooLong 幂等键超长
	ErrKeyTooLong = errors.New("idempotency key too long")
)

// maxIdempotencyKeyLength 幂等键长度上限，与回执主键列宽一致
const maxIdempotencyKeyLength = 64

// NewsletterService 封装简报发布流程
type NewsletterService struct {
	subscribers storage.SubscriberRepository
	receipts    storage.PublishReceiptRepository
	sender      mailer.EmailSender
	validator   *domain.EmailValidator
	logger      *zap.Logger
	workers     int
}

// NewNewsletterService 创建简报发布服务
//
// workers 是并发投递上限，小于 1 时按 1 处理。
func NewNewsletterService(
	subscribers storage.SubscriberRepository,
	receipts storage.PublishReceiptRepository,
	sender mailer.EmailSender,
	workers int,
	logger *zap.Logger,
) *NewsletterService {
	if workers < 1 {
		workers = 1
	}
	return &NewsletterService{
		subscribers: subscribers,
		receipts:    receipts,
		sender:      sender,
		validator:   domain.NewEmailValidator(),
		logger:      logger,
		workers:     workers,
	}
}

// Publish 将简报投递给全部已确认订阅者
//
// 幂等性按 key 保证：已完成的回执直接返回历史汇总；中断后用同一 key
// 重试只会投递尚未声明占位的订阅者。单个订阅者的投递失败计数后继续，
// 整体只在存储出错时失败。
func (s *NewsletterService) Publish(ctx context.Context, issue domain.NewsletterIssue, key string) (*domain.PublishSummary, error) {
	if err := validateIssue(issue); err != nil {
		return nil, err
	}

	if key == "" {
		key = issue.Fingerprint()
	}
	if len(key) > maxIdempotencyKeyLength {
		return nil, ErrKeyTooLong
	}

	receipt, err := s.resolveReceipt(key, issue.Title)
	if err != nil {
		return nil, err
	}
	if receipt.CompletedAt != nil {
		s.logger.Info("publish short-circuited by completed receipt",
			zap.String("key", key))
		return receipt.Summary(true), nil
	}

	subs, err := s.subscribers.ListConfirmed()
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed subscribers: %w", err)
	}

	var (
		mu       sync.Mutex
		outcomes []domain.DeliveryOutcome
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			outcome, claimed, err := s.deliverOne(gctx, key, sub, issue)
			if err != nil {
				return err
			}
			if !claimed {
				return nil
			}
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// 回执保持未完成，同键重试从中断处继续
		return nil, err
	}

	for _, o := range outcomes {
		switch o.Status {
		case domain.DeliveryDelivered:
			receipt.Delivered++
		case domain.DeliverySkippedInvalidEmail:
			receipt.Skipped++
		case domain.DeliveryTransportFailed:
			receipt.Failed++
		}
	}

	if err := s.receipts.CompleteReceipt(receipt); err != nil {
		return nil, fmt.Errorf("failed to complete receipt: %w", err)
	}

	s.logger.Info("newsletter published",
		zap.String("key", key),
		zap.String("title", issue.Title),
		zap.Int("delivered", receipt.Delivered),
		zap.Int("skipped", receipt.Skipped),
		zap.Int("failed", receipt.Failed))

	return receipt.Summary(false), nil
}

// resolveReceipt 获取或创建幂等回执
func (s *NewsletterService) resolveReceipt(key, title string) (*domain.PublishReceipt, error) {
	receipt, err := s.receipts.GetReceipt(key)
	if err == nil {
		return receipt, nil
	}
	if !errors.Is(err, storage.ErrReceiptNotFound) {
		return nil, err
	}

	receipt = &domain.PublishReceipt{
		Key:       key,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.receipts.CreateReceipt(receipt); err != nil {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}
	return receipt, nil
}

// deliverOne 处理单个订阅者：声明占位、校验存量地址、投递
//
// 返回的 claimed 为 false 表示该订阅者已在同键的先前尝试中处理过。
func (s *NewsletterService) deliverOne(ctx context.Context, key string, sub domain.Subscriber, issue domain.NewsletterIssue) (domain.DeliveryOutcome, bool, error) {
	outcome := domain.DeliveryOutcome{SubscriberID: sub.ID, Email: sub.Email}

	claimed, err := s.receipts.MarkDelivered(key, sub.ID)
	if err != nil {
		return outcome, false, fmt.Errorf("failed to claim delivery: %w", err)
	}
	if !claimed {
		return outcome, false, nil
	}

	// 存量地址可能在更严格的校验规则生效前写入
	if err := s.validator.ValidateEmail(sub.Email); err != nil {
		s.logger.Warn("skipping subscriber with invalid stored email",
			zap.String("subscriber_id", sub.ID),
			zap.Error(err))
		outcome.Status = domain.DeliverySkippedInvalidEmail
		outcome.Reason = err.Error()
		return outcome, true, nil
	}

	if err := s.sender.Send(ctx, sub.Email, issue.Title, issue.HTMLContent, issue.TextContent); err != nil {
		s.logger.Warn("failed to deliver newsletter",
			zap.String("subscriber_id", sub.ID),
			zap.Error(err))
		outcome.Status = domain.DeliveryTransportFailed
		outcome.Reason = err.Error()
		return outcome, true, nil
	}

	outcome.Status = domain.DeliveryDelivered
	return outcome, true, nil
}

// validateIssue 校验发布输入
func validateIssue(issue domain.NewsletterIssue) error {
	if strings.TrimSpace(issue.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(issue.TextContent) == "" && strings.TrimSpace(issue.HTMLContent) == "" {
		return ErrEmptyContent
	}
	return nil
}
