package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// NewsletterIssue 一次发布请求携带的简报内容（不持久化）
type NewsletterIssue struct {
	Title       string `json:"title"`
	TextContent string `json:"textContent"`
	HTMLContent string `json:"htmlContent"`
}

// Fingerprint 根据内容派生幂等键
//
// 客户端未显式提供幂等键时使用；同一份内容重复提交会命中同一回执。
func (i NewsletterIssue) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(i.Title))
	h.Write([]byte{0})
	h.Write([]byte(i.TextContent))
	h.Write([]byte{0})
	h.Write([]byte(i.HTMLContent))
	return hex.EncodeToString(h.Sum(nil))
}

// DeliveryStatus 单个订阅者的投递结果类别
type DeliveryStatus string

const (
	// DeliveryDelivered 投递成功
	DeliveryDelivered DeliveryStatus = "delivered"
	// DeliverySkippedInvalidEmail 存量邮箱地址非法，跳过该订阅者
	DeliverySkippedInvalidEmail DeliveryStatus = "skipped_invalid_email"
	// DeliveryTransportFailed 邮件传输失败
	DeliveryTransportFailed DeliveryStatus = "transport_failed"
)

// DeliveryOutcome 单个订阅者的投递结果
type DeliveryOutcome struct {
	SubscriberID string         `json:"subscriberId"`
	Email        string         `json:"email"`
	Status       DeliveryStatus `json:"status"`
	Reason       string         `json:"reason,omitempty"`
}

// PublishSummary 一次发布的汇总结果
type PublishSummary struct {
	Delivered int  `json:"delivered"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	Reused    bool `json:"reused"` // 命中已完成的幂等回执时为 true
}

// PublishReceipt 发布回执，按幂等键记录一次发布的最终结果
//
// CompletedAt 为空表示发布进行中（或被中断）；已完成的回执使同键重复
// 请求直接返回历史结果，不再触发任何投递。
type PublishReceipt struct {
	Key         string     `json:"key" gorm:"primaryKey;type:varchar(64)"`
	Title       string     `json:"title" gorm:"type:varchar(255)"`
	Delivered   int        `json:"delivered"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Summary 将回执转换为汇总结果
func (r *PublishReceipt) Summary(reused bool) *PublishSummary {
	return &PublishSummary{
		Delivered: r.Delivered,
		Skipped:   r.Skipped,
		Failed:    r.Failed,
		Reused:    reused,
	}
}

// DeliveryRecord 发布内部的订阅者级投递占位记录
//
// 投递前先按 (key, subscriber) 声明占位，同一幂等键下的重试因此不会
// 向已处理的订阅者重复发信。
type DeliveryRecord struct {
	Key          string `json:"key" gorm:"primaryKey;type:varchar(64)"`
	SubscriberID string `json:"subscriberId" gorm:"primaryKey;type:varchar(36)"`
}
