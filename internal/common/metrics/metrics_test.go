// Package metrics 提供 Prometheus 指标收集单元测试
package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewWithRegistry(t *testing.T) {
	m, reg := NewWithRegistry("")
	require.NotNil(t, m)
	require.NotNil(t, reg)
	assert.NotNil(t, m.priceQuotesTotal)
	assert.NotNil(t, m.markupCoverageMisses)
	assert.NotNil(t, m.couponRedemptions)

	// 独立注册表可以重复创建
	m2, _ := NewWithRegistry("")
	assert.NotNil(t, m2)
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPriceQuote("USD", "ok", time.Millisecond)
		m.RecordMarkupResolution("none", true)
		m.SetCoverageGaps("template:1", 2)
		m.RecordCouponRedemption("redeemed")
		m.SetExchangeRateAge("USD/MWK", time.Hour)
		m.SetStaleExchangeRates(1)
		m.RecordCacheHit("currencies")
		m.RecordCacheMiss("currencies")
		m.RecordTaskRun("refresh_settings", nil, time.Second)
	})
}

func TestMetrics_RecordTaskRun(t *testing.T) {
	m, _ := NewWithRegistry("test")

	m.RecordTaskRun("check_rate_staleness", nil, 10*time.Millisecond)
	m.RecordTaskRun("check_rate_staleness", assert.AnError, 10*time.Millisecond)
	m.RecordTaskRun("check_rate_staleness", nil, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.taskRunsTotal.WithLabelValues("check_rate_staleness", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.taskRunsTotal.WithLabelValues("check_rate_staleness", "error")))
}

func TestMetrics_RecordPriceQuote(t *testing.T) {
	m, _ := NewWithRegistry("test")

	m.RecordPriceQuote("MWK", "ok", 5*time.Millisecond)
	m.RecordPriceQuote("MWK", "ok", 5*time.Millisecond)
	m.RecordPriceQuote("MWK", "unavailable", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.priceQuotesTotal.WithLabelValues("MWK", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.priceQuotesTotal.WithLabelValues("MWK", "unavailable")))
}

func TestMetrics_RecordMarkupResolution(t *testing.T) {
	m, _ := NewWithRegistry("test")

	t.Run("命中区间不计入缺口", func(t *testing.T) {
		m.RecordMarkupResolution("seller_override", false)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.markupResolutions.WithLabelValues("seller_override")))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.markupCoverageMisses.WithLabelValues("seller_override")))
	})

	t.Run("未覆盖时计入缺口", func(t *testing.T) {
		m.RecordMarkupResolution("none", true)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.markupCoverageMisses.WithLabelValues("none")))
	})
}

func TestMetrics_Gauges(t *testing.T) {
	m, _ := NewWithRegistry("test")

	m.SetExchangeRateAge("USD/MWK", 90*time.Second)
	m.SetStaleExchangeRates(3)
	m.SetCoverageGaps("template:7", 2)

	assert.Equal(t, 90.0, testutil.ToFloat64(m.exchangeRateAge.WithLabelValues("USD/MWK")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.staleExchangeRates))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.markupCoverageGaps.WithLabelValues("template:7")))
}

func TestMetrics_Middleware(t *testing.T) {
	m, _ := NewWithRegistry("test_http")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/v1/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/ping", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "unknown", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpRequestsInFlight))
}

func TestMetrics_Handler(t *testing.T) {
	m, _ := NewWithRegistry("test_handler")
	m.RecordCouponRedemption("redeemed")

	r := gin.New()
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `test_handler_coupon_redemptions_total{result="redeemed"} 1`))
}
