package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"newsletter/backend/internal/domain"
)

// Metrics 监控指标
//
// 指标挂在私有注册表上，而不是全局默认注册表，多个实例（如测试中）
// 互不冲突。
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 业务指标
	SubscriptionsTotal prometheus.Counter
	ConfirmationsTotal prometheus.Counter
	PublishesTotal     *prometheus.CounterVec
	DeliveriesTotal    *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsletter_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newsletter_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		SubscriptionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "newsletter_subscriptions_total",
				Help: "Total number of accepted subscription requests",
			},
		),

		ConfirmationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "newsletter_confirmations_total",
				Help: "Total number of successful confirmations",
			},
		),

		PublishesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsletter_publishes_total",
				Help: "Total number of publish requests by result",
			},
			[]string{"result"},
		),

		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsletter_deliveries_total",
				Help: "Total number of per-subscriber deliveries by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordSubscription 记录接受的订阅请求
func (m *Metrics) RecordSubscription() {
	m.SubscriptionsTotal.Inc()
}

// RecordConfirmation 记录成功的确认
func (m *Metrics) RecordConfirmation() {
	m.ConfirmationsTotal.Inc()
}

// RecordPublish 记录发布结果
func (m *Metrics) RecordPublish(summary *domain.PublishSummary) {
	result := "published"
	if summary.Reused {
		result = "reused"
	}
	m.PublishesTotal.WithLabelValues(result).Inc()

	m.DeliveriesTotal.WithLabelValues(string(domain.DeliveryDelivered)).Add(float64(summary.Delivered))
	m.DeliveriesTotal.WithLabelValues(string(domain.DeliverySkippedInvalidEmail)).Add(float64(summary.Skipped))
	m.DeliveriesTotal.WithLabelValues(string(domain.DeliveryTransportFailed)).Add(float64(summary.Failed))
}

// HTTPHandler 返回 Prometheus 抓取端点处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
