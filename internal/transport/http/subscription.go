package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"newsletter/backend/internal/monitoring"
	"newsletter/backend/internal/service"
	"newsletter/backend/internal/storage"
)

// SubscriptionHandler 订阅相关处理器
type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
	metrics             *monitoring.Metrics
}

// NewSubscriptionHandler 创建订阅处理器
func NewSubscriptionHandler(subscriptionService *service.SubscriptionService, metrics *monitoring.Metrics) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		metrics:             metrics,
	}
}

// subscribeRequest 订阅表单
type subscribeRequest struct {
	Name  string `form:"name" binding:"required"`
	Email string `form:"email" binding:"required"`
}

// Subscribe 受理订阅申请
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	err := h.subscriptionService.Subscribe(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrConfirmationDelivery) {
			InternalError(c, MsgConfirmMailFailed)
			return
		}
		// 校验错误原样返回给提交者
		if msg, ok := errorMessages[err]; ok {
			BadRequest(c, msg)
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	h.metrics.RecordSubscription()
	SuccessWithMsg(c, MsgSubscribeOK, nil)
}

// Confirm 处理确认链接
func (h *SubscriptionHandler) Confirm(c *gin.Context) {
	token := c.Query("subscription_token")
	if token == "" {
		BadRequest(c, MsgMissingToken)
		return
	}

	if err := h.subscriptionService.Confirm(c.Request.Context(), token); err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrTokenNotFound))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	h.metrics.RecordConfirmation()
	SuccessWithMsg(c, MsgConfirmOK, nil)
}
