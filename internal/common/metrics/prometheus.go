// Package metrics 提供 Prometheus 指标收集
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标收集器
// 所有 Record 方法对 nil 接收者安全，未启用监控时可直接传 nil
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	priceQuotesTotal     *prometheus.CounterVec
	priceQuoteDuration   prometheus.Histogram
	markupResolutions    *prometheus.CounterVec
	markupCoverageMisses *prometheus.CounterVec
	markupCoverageGaps   *prometheus.GaugeVec
	couponRedemptions    *prometheus.CounterVec
	exchangeRateAge      *prometheus.GaugeVec
	staleExchangeRates   prometheus.Gauge
	cacheHitsTotal       *prometheus.CounterVec
	cacheMissesTotal     *prometheus.CounterVec
	taskRunsTotal        *prometheus.CounterVec
	taskDuration         *prometheus.HistogramVec
}

// Init 注册到默认注册表，进程内只能调用一次
func Init(namespace string) *Metrics {
	return New(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry 使用独立注册表创建指标收集器，测试中避免重复注册
func NewWithRegistry(namespace string) (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return New(namespace, reg, reg), reg
}

// New 创建指标收集器
func New(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	if namespace == "" {
		namespace = "marketplace_pricing"
	}
	f := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		priceQuotesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "price_quotes_total",
				Help:      "Total number of price quotes by display currency and outcome",
			},
			[]string{"currency", "status"},
		),
		priceQuoteDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "price_quote_duration_seconds",
				Help:      "Time spent loading data and composing a price",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		markupResolutions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "markup_resolutions_total",
				Help:      "Markup resolutions by the schedule that supplied the amount",
			},
			[]string{"source"},
		),
		markupCoverageMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "markup_coverage_miss_total",
				Help:      "Prices that fell outside every range of a configured markup schedule",
			},
			[]string{"source"},
		),
		markupCoverageGaps: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "markup_coverage_gaps",
				Help:      "Uncovered price intervals per markup schedule owner",
			},
			[]string{"owner"},
		),
		couponRedemptions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "coupon_redemptions_total",
				Help:      "Coupon redemption attempts by result",
			},
			[]string{"result"},
		),
		exchangeRateAge: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "exchange_rate_age_seconds",
				Help:      "Seconds since the exchange rate for a pair was fetched",
			},
			[]string{"pair"},
		),
		staleExchangeRates: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stale_exchange_rates",
				Help:      "Number of exchange rates older than the staleness threshold",
			},
		),
		cacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		cacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),
		taskRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduled_task_runs_total",
				Help:      "Background task runs by task and outcome",
			},
			[]string{"task", "status"},
		),
		taskDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scheduled_task_duration_seconds",
				Help:      "Background task run duration in seconds",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 30, 120},
			},
			[]string{"task"},
		),
	}
}

// Middleware 返回 Gin 中间件
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.httpRequestsInFlight.Inc()

		c.Next()

		m.httpRequestsInFlight.Dec()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler 返回 Prometheus HTTP 处理器
func (m *Metrics) Handler() gin.HandlerFunc {
	var h http.Handler
	if m == nil || m.gatherer == nil {
		h = promhttp.Handler()
	} else {
		h = promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	}
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordPriceQuote 记录一次报价
func (m *Metrics) RecordPriceQuote(currency, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.priceQuotesTotal.WithLabelValues(currency, status).Inc()
	m.priceQuoteDuration.Observe(duration.Seconds())
}

// RecordMarkupResolution 记录加价来源，miss 为 true 表示已配置的区间未覆盖该价格
func (m *Metrics) RecordMarkupResolution(source string, miss bool) {
	if m == nil {
		return
	}
	m.markupResolutions.WithLabelValues(source).Inc()
	if miss {
		m.markupCoverageMisses.WithLabelValues(source).Inc()
	}
}

// SetCoverageGaps 设置某个加价区间所有者的缺口数
func (m *Metrics) SetCoverageGaps(owner string, gaps int) {
	if m == nil {
		return
	}
	m.markupCoverageGaps.WithLabelValues(owner).Set(float64(gaps))
}

// RecordCouponRedemption 记录优惠券核销结果
func (m *Metrics) RecordCouponRedemption(result string) {
	if m == nil {
		return
	}
	m.couponRedemptions.WithLabelValues(result).Inc()
}

// SetExchangeRateAge 设置汇率年龄
func (m *Metrics) SetExchangeRateAge(pair string, age time.Duration) {
	if m == nil {
		return
	}
	m.exchangeRateAge.WithLabelValues(pair).Set(age.Seconds())
}

// SetStaleExchangeRates 设置过期汇率数量
func (m *Metrics) SetStaleExchangeRates(count int) {
	if m == nil {
		return
	}
	m.staleExchangeRates.Set(float64(count))
}

// RecordCacheHit 记录缓存命中
func (m *Metrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *Metrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordTaskRun 记录一次后台任务执行
func (m *Metrics) RecordTaskRun(task string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.taskRunsTotal.WithLabelValues(task, status).Inc()
	m.taskDuration.WithLabelValues(task).Observe(duration.Seconds())
}
