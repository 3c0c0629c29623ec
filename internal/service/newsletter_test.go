package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"newsletter/backend/internal/domain"
	"newsletter/backend/internal/storage/memory"
)

func newNewsletterFixture(t *testing.T) (*NewsletterService, *memory.Store, *fakeSender) {
	t.Helper()
	store := memory.NewStore()
	sender := &fakeSender{}
	svc := NewNewsletterService(store, store, sender, 4, zap.NewNop())
	return svc, store, sender
}

// seedSubscriber 直接写入一条订阅者记录
func seedSubscriber(t *testing.T, store *memory.Store, id, email string, status domain.SubscriberStatus) {
	t.Helper()
	require.NoError(t, store.CreateSubscriber(&domain.Subscriber{
		ID:        id,
		Email:     email,
		Name:      "subscriber " + id,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}))
}

func testIssue() domain.NewsletterIssue {
	return domain.NewsletterIssue{
		Title:       "本周要闻",
		TextContent: "plain text body",
		HTMLContent: "<p>html body</p>",
	}
}

func TestPublish_DeliversToConfirmedOnly(t *testing.T) {
	svc, store, sender := newNewsletterFixture(t)

	for i := 0; i < 3; i++ {
		seedSubscriber(t, store, fmt.Sprintf("c%d", i), fmt.Sprintf("c%d@example.com", i), domain.StatusConfirmed)
	}
	seedSubscriber(t, store, "p0", "p0@example.com", domain.StatusPendingConfirmation)

	summary, err := svc.Publish(context.Background(), testIssue(), "issue-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Delivered)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.False(t, summary.Reused)

	sent := sender.sentTo()
	require.Len(t, sent, 3)
	for _, mail := range sent {
		assert.Equal(t, "本周要闻", mail.Subject)
		assert.NotContains(t, mail.To, "p0@")
	}
}

func TestPublish_NoConfirmedSubscribers(t *testing.T) {
	svc, store, sender := newNewsletterFixture(t)
	seedSubscriber(t, store, "p0", "p0@example.com", domain.StatusPendingConfirmation)

	summary, err := svc.Publish(context.Background(), testIssue(), "issue-1")
	require.NoError(t, err)
	assert.Zero(t, summary.Delivered)
	assert.Empty(t, sender.sentTo())
}

func TestPublish_SkipsInvalidStoredEmail(t *testing.T) {
	svc, store, sender := newNewsletterFixture(t)

	seedSubscriber(t, store, "c0", "good@example.com", domain.StatusConfirmed)
	// 在更严格的校验生效前写入的坏地址
	seedSubscriber(t, store, "c1", "definitely-not-an-email", domain.StatusConfirmed)

	summary, err := svc.Publish(context.Background(), testIssue(), "issue-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Delivered)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Failed)

	sent := sender.sentTo()
	require.Len(t, sent, 1)
	assert.Equal(t, "good@example.com", sent[0].To)
}

func TestPublish_BestEffortOnTransportFailure(t *testing.T) {
	svc, store, sender := newNewsletterFixture(t)

	seedSubscriber(t, store, "c0", "ok@example.com", domain.StatusConfirmed)
	seedSubscriber(t, store, "c1", "broken@example.com", domain.StatusConfirmed)
	sender.failFn = func(to string) error {
		if to == "broken@example.com" {
			return errors.New("mailbox unavailable")
		}
		return nil
	}

	summary, err := svc.Publish(context.Background(), testIssue(), "issue-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Delivered)
	assert.Equal(t, 1, summary.Failed)
}

func TestPublish_SameKeyDoesNotResend(t *testing.T) {
	svc, store, sender := newNewsletterFixture(t)
	seedSubscriber(t, store, "c0", "c0@example.com", domain.StatusConfirmed)

	first, err := svc.Publish(context.Background(), testIssue(), "issue-1")
	require.NoError(t, err)
	assert.False(t, first.Reused)

	second, err := svc.Publish(context.Background(), testIssue(), "issue-1")
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Delivered, second.Delivered)

	assert.Len(t, sender.sentTo(), 1)
}

func TestPublish_EmptyKeyFallsBackToFingerprint(t *testing.T) {
	svc, store, sender := newNewsletterFixture(t)
	seedSubscriber(t, store, "c0", "c0@example.com", domain.StatusConfirmed)

	_, err := svc.Publish(context.Background(), testIssue(), "")
	require.NoError(t, err)

	// 同一内容等价于同一幂等键
	summary, err := svc.Publish(context.Background(), testIssue(), "")
	require.NoError(t, err)
	assert.True(t, summary.Reused)
	assert.Len(t, sender.sentTo(), 1)

	// 内容变化派生出新键
	changed := testIssue()
	changed.Title = "下周要闻"
	summary, err = svc.Publish(context.Background(), changed, "")
	require.NoError(t, err)
	assert.False(t, summary.Reused)
	assert.Len(t, sender.sentTo(), 2)
}

func TestPublish_ResumeSkipsAlreadyServed(t *testing.T) {
	svc, store, sender := newNewsletterFixture(t)
	seedSubscriber(t, store, "c0", "c0@example.com", domain.StatusConfirmed)
	seedSubscriber(t, store, "c1", "c1@example.com", domain.StatusConfirmed)

	// 模拟被中断的先前尝试：回执存在且 c0 已有占位记录
	require.NoError(t, store.CreateReceipt(&domain.PublishReceipt{
		Key:       "issue-1",
		Title:     "本周要闻",
		CreatedAt: time.Now().UTC(),
	}))
	claimed, err := store.MarkDelivered("issue-1", "c0")
	require.NoError(t, err)
	require.True(t, claimed)

	summary, err := svc.Publish(context.Background(), testIssue(), "issue-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Delivered)

	sent := sender.sentTo()
	require.Len(t, sent, 1)
	assert.Equal(t, "c1@example.com", sent[0].To)
}

func TestPublish_RejectsInvalidIssue(t *testing.T) {
	svc, _, _ := newNewsletterFixture(t)
	ctx := context.Background()

	_, err := svc.Publish(ctx, domain.NewsletterIssue{TextContent: "body"}, "k")
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = svc.Publish(ctx, domain.NewsletterIssue{Title: "t"}, "k")
	assert.ErrorIs(t, err, ErrEmptyContent)

	longKey := make([]byte, maxIdempotencyKeyLength+1)
	for i := range longKey {
		longKey[i] = 'x'
	}
	_, err = svc.Publish(ctx, testIssue(), string(longKey))
	assert.ErrorIs(t, err, ErrKeyTooLong)
}
