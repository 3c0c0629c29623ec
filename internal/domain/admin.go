package domain

import "time"

// Admin 表示可以发布邮件简报的管理员账户
type Admin struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string    `json:"username" gorm:"uniqueIndex;type:varchar(100);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"` // 不返回给前端
	CreatedAt    time.Time `json:"createdAt"`
}

// Session 服务端会话记录
//
// Cookie 中只携带包裹会话 ID 的签名令牌，会话本身由服务端存储追踪，
// 因此可以随时吊销。
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AdminID   string    `json:"adminId" gorm:"type:varchar(36);index;not null"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"index"`
}
