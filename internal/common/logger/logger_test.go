// Package logger 日志模块单元测试
package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dumeirei/marketplace-pricing/internal/common/config"
)

// ==================== Init 函数测试 ====================

func TestInit_ConsoleFormat(t *testing.T) {
	err := Init(&config.LoggerConfig{Level: "debug", Format: "console", Output: "stdout", Caller: true})
	assert.NoError(t, err)
	assert.NotNil(t, log)
	assert.NotNil(t, sugar)
}

func TestInit_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	err := Init(&config.LoggerConfig{
		Level:      "debug",
		Format:     "json",
		Output:     "file",
		FilePath:   logFile,
		MaxSize:    1,
		MaxBackups: 3,
		MaxAge:     7,
		Caller:     true,
	})
	require.NoError(t, err)

	Info("test message")
	_ = Sync()

	_, err = os.Stat(logFile)
	assert.NoError(t, err)
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zapcore.Level
	}{
		{"debug level", "debug", zapcore.DebugLevel},
		{"info level", "info", zapcore.InfoLevel},
		{"warn level", "warn", zapcore.WarnLevel},
		{"error level", "error", zapcore.ErrorLevel},
		{"default level", "invalid", zapcore.InfoLevel},
		{"empty level", "", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, getLogLevel(tt.level))
		})
	}
}

// ==================== GetLogger / SetLogger 测试 ====================

func TestGetLogger_LazyInit(t *testing.T) {
	log = nil
	sugar = nil

	l := GetLogger()
	assert.NotNil(t, l)
	assert.Equal(t, l, GetLogger())
	assert.NotNil(t, GetSugar())
}

func TestSync_WithNilLogger(t *testing.T) {
	log = nil
	assert.NoError(t, Sync())
}

func TestSetLogger_Observer(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	SetLogger(zap.New(core))

	Info("ignored")
	Warn("markup coverage gap", SellerID(7), Currency("ZAR"), Amount("base_price", decimal.RequireFromString("1500000")))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "markup coverage gap", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, int64(7), fields["seller_id"])
	assert.Equal(t, "ZAR", fields["currency"])
	assert.Equal(t, "1500000", fields["base_price"])
}

// ==================== 字段构造函数测试 ====================

func TestFieldConstructorValues(t *testing.T) {
	t.Run("字符串字段", func(t *testing.T) {
		cases := map[string]zap.Field{
			"currency":    Currency("MWK"),
			"pair":        CurrencyPair("USD", "MWK"),
			"coupon_code": CouponCode("SAVE10"),
			"order_no":    OrderNo("ORD123"),
			"path":        Path("/api/v1/prices/quote"),
		}
		for key, field := range cases {
			assert.Equal(t, key, field.Key)
			assert.NotEmpty(t, field.String)
		}
		assert.Equal(t, "USD/MWK", CurrencyPair("USD", "MWK").String)
	})

	t.Run("整数字段", func(t *testing.T) {
		cases := map[string]zap.Field{
			"seller_id":   SellerID(2),
			"product_id":  ProductID(3),
			"template_id": TemplateID(4),
		}
		for key, field := range cases {
			assert.Equal(t, key, field.Key)
			assert.NotZero(t, field.Integer)
		}
	})

	t.Run("Latency", func(t *testing.T) {
		field := Latency(100 * time.Millisecond)
		assert.Equal(t, "latency", field.Key)
	})
}

// ==================== JSON 日志格式验证 ====================

func TestJSONLogFormat(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "json.log")

	err := Init(&config.LoggerConfig{Level: "info", Format: "json", Output: "file", FilePath: logFile})
	require.NoError(t, err)

	Info("test json log", String("key", "value"), Int("count", 42), Amount("amount", decimal.RequireFromString("12.50")))
	_ = Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))

	assert.Equal(t, "test json log", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, float64(42), entry["count"])
	assert.Equal(t, "12.5", entry["amount"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestLogLevelFiltering(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "level.log")

	err := Init(&config.LoggerConfig{Level: "warn", Format: "json", Output: "file", FilePath: logFile})
	require.NoError(t, err)

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	_ = Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	logContent := string(content)

	assert.NotContains(t, logContent, "debug message")
	assert.NotContains(t, logContent, "info message")
	assert.Contains(t, logContent, "warn message")
	assert.Contains(t, logContent, "error message")
}
