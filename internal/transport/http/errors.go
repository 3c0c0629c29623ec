package httptransport

import (
	"newsletter/backend/internal/domain"
	"newsletter/backend/internal/service"
	"newsletter/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// 订阅输入错误
	domain.ErrInvalidEmail:     "邮箱格式无效",
	domain.ErrEmailTooLong:     "邮箱地址过长",
	domain.ErrLocalPartTooLong: "邮箱地址过长",
	domain.ErrDomainTooLong:    "邮箱域名过长",
	domain.ErrInvalidDomain:    "邮箱域名无效",
	domain.ErrEmptyName:        "称呼不能为空",
	domain.ErrNameTooLong:      "称呼过长",
	domain.ErrInvalidName:      "称呼包含非法字符",

	// 确认错误
	storage.ErrTokenNotFound: "确认链接无效",

	// 发布错误
	service.ErrEmptyTitle:   "简报标题不能为空",
	service.ErrEmptyContent: "简报内容不能为空",
	service.ErrKeyTooLong:   "幂等键过长",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	MsgInvalidRequest     = "请求参数格式错误"
	MsgMissingToken       = "缺少确认令牌参数"
	MsgSubscribeOK        = "订阅申请已受理，请查收确认邮件"
	MsgConfirmOK          = "订阅确认成功"
	MsgConfirmMailFailed  = "确认邮件发送失败，请稍后重试"
	MsgInvalidCredentials = "用户名或密码错误"
	MsgInternalError      = "服务器内部错误，请稍后重试"
	MsgPublishAccepted    = "简报已发布"
	MsgPublishReused      = "该简报此前已发布，返回历史结果"
)
