package domain

import "time"

// SubscriberStatus 订阅者确认状态
type SubscriberStatus string

const (
	// StatusPendingConfirmation 已登记但尚未点击确认链接
	StatusPendingConfirmation SubscriberStatus = "pending_confirmation"
	// StatusConfirmed 已确认，有资格接收邮件简报
	StatusConfirmed SubscriberStatus = "confirmed"
)

// Subscriber 表示邮件简报订阅者的业务实体
//
// 状态机: pending_confirmation -> confirmed，单向且不可逆。
// 唯一的状态写入路径是存储层的 MarkConfirmed 条件更新。
type Subscriber struct {
	ID          string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email       string           `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Name        string           `json:"name" gorm:"type:varchar(255);not null"`
	Status      SubscriberStatus `json:"status" gorm:"type:varchar(30);default:'pending_confirmation';index"`
	CreatedAt   time.Time        `json:"createdAt"`
	ConfirmedAt *time.Time       `json:"confirmedAt,omitempty"`
}

// IsConfirmed 判断订阅者是否已确认
func (s *Subscriber) IsConfirmed() bool {
	return s.Status == StatusConfirmed
}
