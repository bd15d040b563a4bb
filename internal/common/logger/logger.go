// Package logger 提供结构化日志功能
//
// 全局日志器由 Init 按配置构建，未初始化时惰性创建开发模式日志器。
// 金额字段一律以十进制字符串输出，加价与底价只允许出现在运维日志里。
package logger

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dumeirei/marketplace-pricing/internal/common/config"
)

var (
	log   *zap.Logger
	sugar *zap.SugaredLogger
)

// Init 初始化日志
func Init(cfg *config.LoggerConfig) error {
	core := zapcore.NewCore(newEncoder(cfg.Format), newWriter(cfg), getLogLevel(cfg.Level))

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Caller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	SetLogger(zap.New(core, opts...))
	return nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	ec.EncodeDuration = zapcore.SecondsDurationEncoder
	ec.FunctionKey = zapcore.OmitKey

	if format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// newWriter stdout 与滚动文件可同时输出
func newWriter(cfg *config.LoggerConfig) zapcore.WriteSyncer {
	var ws []zapcore.WriteSyncer
	if cfg.Output == "" || cfg.Output == "stdout" {
		ws = append(ws, zapcore.AddSync(os.Stdout))
	}
	if cfg.FilePath != "" && cfg.Output != "stdout" {
		ws = append(ws, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}))
	}
	return zapcore.NewMultiWriteSyncer(ws...)
}

func getLogLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(level)
	if err != nil || level == "" {
		return zapcore.InfoLevel
	}
	return l
}

// SetLogger 替换全局日志器，测试中用于挂载 observer
func SetLogger(l *zap.Logger) {
	log = l
	sugar = l.Sugar()
}

// GetLogger 获取原始日志器
func GetLogger() *zap.Logger {
	if log == nil {
		l, _ := zap.NewDevelopment()
		SetLogger(l)
	}
	return log
}

// GetSugar 获取 Sugar 日志器
func GetSugar() *zap.SugaredLogger {
	if sugar == nil {
		GetLogger()
	}
	return sugar
}

// Sync 刷新缓冲
func Sync() error {
	if log == nil {
		return nil
	}
	return log.Sync()
}

// Debug 调试日志
func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }

// Info 信息日志
func Info(msg string, fields ...zap.Field) { GetLogger().Info(msg, fields...) }

// Warn 警告日志
func Warn(msg string, fields ...zap.Field) { GetLogger().Warn(msg, fields...) }

// Error 错误日志
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }

// 常用字段构造函数
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Err      = zap.Error
	Duration = zap.Duration
)

// SellerID 卖家ID
func SellerID(id int64) zap.Field { return zap.Int64("seller_id", id) }

// ProductID 商品ID
func ProductID(id int64) zap.Field { return zap.Int64("product_id", id) }

// TemplateID 加价模板ID
func TemplateID(id int64) zap.Field { return zap.Int64("template_id", id) }

// Currency 币种代码
func Currency(code string) zap.Field { return zap.String("currency", code) }

// CurrencyPair 有向币种对，格式 FROM/TO
func CurrencyPair(from, to string) zap.Field { return zap.String("pair", from+"/"+to) }

// Amount 金额，按字符串输出避免浮点误差
func Amount(key string, d decimal.Decimal) zap.Field { return zap.Stringer(key, d) }

// CouponCode 券码
func CouponCode(code string) zap.Field { return zap.String("coupon_code", code) }

// OrderNo 订单号
func OrderNo(no string) zap.Field { return zap.String("order_no", no) }

// Path 路由
func Path(path string) zap.Field { return zap.String("path", path) }

// Latency 耗时
func Latency(d time.Duration) zap.Field { return zap.Duration("latency", d) }
