// Package config 加载服务配置
//
// 优先级：环境变量（PRICING_ 前缀，层级以 _ 连接）> 配置文件 > 默认值。
// .env 文件可选，只补充尚未设置的环境变量。时长字段接受 "30s"、"24h" 形式。
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，如 PRICING_DATABASE_HOST
const EnvPrefix = "PRICING"

var (
	globalConfig *Config
	loadOnce     sync.Once
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
}

// ServerConfig HTTP 服务
type ServerConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库；ConnMaxLifetime 单位分钟，SlowThreshold 单位毫秒
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogMode         bool   `mapstructure:"log_mode"`
	SlowThreshold   int    `mapstructure:"slow_threshold"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// DSN 连接串；sqlite 下 Name 即文件路径或 ":memory:"
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Name
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Timezone)
}

// RedisConfig Redis；超时单位秒
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  int    `mapstructure:"dial_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// Addr host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoggerConfig 日志，文件输出按 MaxSize(MB) 滚动
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Caller     bool   `mapstructure:"caller"`
}

// MetricsConfig Prometheus 指标
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// TracingConfig OpenTelemetry，Endpoint 为空时输出到 stdout
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RateLimitConfig 对外接口限流
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

// CORSConfig 跨域
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// PricingConfig 定价引擎
// settings 表中同名配置项在运行时覆盖 DefaultCurrency、PromotionTieBreak 与 RateStaleAfter
type PricingConfig struct {
	DefaultCurrency   string        `mapstructure:"default_currency"`
	PromotionTieBreak string        `mapstructure:"promotion_tie_break"`
	RateStaleAfter    time.Duration `mapstructure:"rate_stale_after"`
	// 以下间隔为 0 时对应的定时任务不注册
	SettingsRefreshInterval time.Duration `mapstructure:"settings_refresh_interval"`
	RateCheckInterval       time.Duration `mapstructure:"rate_check_interval"`
	CoverageAuditInterval   time.Duration `mapstructure:"coverage_audit_interval"`
	RedemptionLockTTL       time.Duration `mapstructure:"redemption_lock_ttl"`
}

var tieBreakPolicies = map[string]bool{"largest_discount": true, "earliest_created": true}

// Validate 校验会直接影响报价结果的配置
func (c *Config) Validate() error {
	var errs []error
	if len(strings.TrimSpace(c.Pricing.DefaultCurrency)) != 3 {
		errs = append(errs, fmt.Errorf("pricing.default_currency must be a 3-letter code, got %q", c.Pricing.DefaultCurrency))
	}
	if !tieBreakPolicies[strings.ToLower(c.Pricing.PromotionTieBreak)] {
		errs = append(errs, fmt.Errorf("pricing.promotion_tie_break %q is not supported", c.Pricing.PromotionTieBreak))
	}
	if c.Pricing.RateStaleAfter <= 0 {
		errs = append(errs, errors.New("pricing.rate_stale_after must be positive"))
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	return errors.Join(errs...)
}

// Load 加载并校验配置，进程内只加载一次
func Load(configPath string) (*Config, error) {
	var err error
	loadOnce.Do(func() {
		globalConfig, err = load(configPath)
	})
	return globalConfig, err
}

func load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Get 获取全局配置，未加载时返回默认值
func Get() *Config {
	if globalConfig == nil {
		cfg := &Config{}
		_ = newViper().Unmarshal(cfg)
		globalConfig = cfg
	}
	return globalConfig
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"server.name":             "marketplace-pricing",
		"server.mode":             "debug",
		"server.port":             8000,
		"server.read_timeout":     30 * time.Second,
		"server.write_timeout":    30 * time.Second,
		"server.shutdown_timeout": 10 * time.Second,

		"database.driver":            "postgres",
		"database.host":              "localhost",
		"database.port":              5432,
		"database.user":              "postgres",
		"database.password":          "postgres",
		"database.name":              "marketplace",
		"database.sslmode":           "disable",
		"database.timezone":          "UTC",
		"database.max_idle_conns":    10,
		"database.max_open_conns":    100,
		"database.conn_max_lifetime": 60,
		"database.log_mode":          true,
		"database.slow_threshold":    200,
		"database.auto_migrate":      false,

		"redis.host":           "localhost",
		"redis.port":           6379,
		"redis.password":       "",
		"redis.db":             0,
		"redis.pool_size":      100,
		"redis.min_idle_conns": 10,
		"redis.dial_timeout":   5,
		"redis.read_timeout":   3,
		"redis.write_timeout":  3,

		"logger.level":       "debug",
		"logger.format":      "console",
		"logger.output":      "stdout",
		"logger.file_path":   "./logs/app.log",
		"logger.max_size":    100,
		"logger.max_backups": 10,
		"logger.max_age":     30,
		"logger.compress":    true,
		"logger.caller":      true,

		"metrics.enabled":   true,
		"metrics.namespace": "marketplace_pricing",
		"metrics.path":      "/metrics",

		"tracing.enabled":      false,
		"tracing.service_name": "marketplace-pricing",
		"tracing.sample_rate":  1.0,

		"ratelimit.enabled":             true,
		"ratelimit.requests_per_minute": 600,

		"cors.allowed_origins":   []string{"*"},
		"cors.allowed_methods":   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		"cors.allowed_headers":   []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		"cors.exposed_headers":   []string{"X-Request-ID"},
		"cors.allow_credentials": false,
		"cors.max_age":           86400,

		"pricing.default_currency":          "USD",
		"pricing.promotion_tie_break":       "largest_discount",
		"pricing.rate_stale_after":          24 * time.Hour,
		"pricing.settings_refresh_interval": time.Minute,
		"pricing.rate_check_interval":       15 * time.Minute,
		"pricing.coverage_audit_interval":   time.Hour,
		"pricing.redemption_lock_ttl":       30 * time.Second,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// IsDebug 是否为调试模式
func (c *Config) IsDebug() bool {
	return c.Server.Mode == "debug"
}

// IsRelease 是否为发布模式
func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}
