package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"newsletter/backend/internal/domain"
	"newsletter/backend/internal/monitoring"
	"newsletter/backend/internal/service"
)

// NewsletterHandler 简报发布处理器
type NewsletterHandler struct {
	newsletterService *service.NewsletterService
	metrics           *monitoring.Metrics
}

// NewNewsletterHandler 创建简报发布处理器
func NewNewsletterHandler(newsletterService *service.NewsletterService, metrics *monitoring.Metrics) *NewsletterHandler {
	return &NewsletterHandler{
		newsletterService: newsletterService,
		metrics:           metrics,
	}
}

// publishRequest 机器端发布请求体
type publishRequest struct {
	Title   string `json:"title" binding:"required"`
	Content struct {
		Text string `json:"text"`
		HTML string `json:"html"`
	} `json:"content" binding:"required"`
}

// Publish 机器端发布接口（Basic 认证）
//
// 幂等键取 Idempotency-Key 请求头，缺省时按内容指纹派生。
func (h *NewsletterHandler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	issue := domain.NewsletterIssue{
		Title:       req.Title,
		TextContent: req.Content.Text,
		HTMLContent: req.Content.HTML,
	}

	summary, err := h.newsletterService.Publish(c.Request.Context(), issue, c.GetHeader("Idempotency-Key"))
	if err != nil {
		if msg, ok := errorMessages[err]; ok {
			BadRequest(c, msg)
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	h.metrics.RecordPublish(summary)
	if summary.Reused {
		SuccessWithMsg(c, MsgPublishReused, summary)
		return
	}
	SuccessWithMsg(c, MsgPublishAccepted, summary)
}

// publishForm 管理后台发布表单
type publishForm struct {
	Title          string `form:"title" binding:"required"`
	TextContent    string `form:"text_content"`
	HTMLContent    string `form:"html_content"`
	IdempotencyKey string `form:"idempotency_key"`
}

// PublishForm 管理后台发布接口（会话认证）
//
// 成功后重定向回发布页，刷新页面不会重复投递：表单携带的幂等键
// 会命中已完成的回执。
func (h *NewsletterHandler) PublishForm(c *gin.Context) {
	var form publishForm
	if err := c.ShouldBind(&form); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	issue := domain.NewsletterIssue{
		Title:       form.Title,
		TextContent: form.TextContent,
		HTMLContent: form.HTMLContent,
	}

	summary, err := h.newsletterService.Publish(c.Request.Context(), issue, form.IdempotencyKey)
	if err != nil {
		if msg, ok := errorMessages[err]; ok {
			BadRequest(c, msg)
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	h.metrics.RecordPublish(summary)
	c.Redirect(http.StatusSeeOther, "/admin/newsletters")
}

// publishPage 管理后台发布页
const publishPage = `<!DOCTYPE html>
<html lang="zh">
<head><meta charset="utf-8"><title>发布简报</title></head>
<body>
<h1>发布简报</h1>
<form method="post" action="/admin/newsletters">
  <p><label>标题 <input type="text" name="title"></label></p>
  <p><label>纯文本内容 <textarea name="text_content"></textarea></label></p>
  <p><label>HTML 内容 <textarea name="html_content"></textarea></label></p>
  <input type="hidden" name="idempotency_key" value="%s">
  <p><button type="submit">发布</button></p>
</form>
<form method="post" action="/admin/logout"><button type="submit">退出登录</button></form>
</body>
</html>`

// PublishPage 渲染发布页，预填一次性幂等键
func (h *NewsletterHandler) PublishPage(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, publishPage, uuid.NewString())
}
