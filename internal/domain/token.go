package domain

import "time"

// ConfirmationToken 确认令牌
//
// 令牌一经签发永久有效并始终解析到其订阅者；重新订阅会为同一订阅者
// 追加新令牌（重发语义），历史令牌不会被作废。
type ConfirmationToken struct {
	Token        string    `json:"token" gorm:"primaryKey;type:varchar(64)"`
	SubscriberID string    `json:"subscriberId" gorm:"type:varchar(36);index;not null"`
	CreatedAt    time.Time `json:"createdAt"`
}
