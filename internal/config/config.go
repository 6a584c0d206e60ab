package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/gopay-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Web       WebConfig       `mapstructure:"web"`
	Merchants []MerchantEntry `mapstructure:"merchants"`
	Alipay    []AlipayChannel `mapstructure:"alipay"`
	Wxpay     []WxpayChannel  `mapstructure:"wxpay"`
	Form      FormConfig      `mapstructure:"form"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Forward   ForwardConfig   `mapstructure:"forward"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// WebConfig 对外站点配置
type WebConfig struct {
	// PayURL 支付域名，用于渠道回调通知，结尾不带 /
	PayURL string `mapstructure:"pay_url"`
}

// MerchantEntry 接入商户配置
type MerchantEntry struct {
	PID int    `mapstructure:"pid"`
	Key string `mapstructure:"key"`
}

// AlipayChannel 支付宝渠道配置
type AlipayChannel struct {
	AppID string `mapstructure:"app_id"`
	// PrivateKey 应用私钥，PKCS1/PKCS8 均可
	PrivateKey     string `mapstructure:"private_key"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	// AlipayPublicKey 支付宝公钥，用于验签异步通知
	AlipayPublicKey     string `mapstructure:"alipay_public_key"`
	AlipayPublicKeyPath string `mapstructure:"alipay_public_key_path"`
	IsProd              bool   `mapstructure:"is_prod"`
}

// WxpayChannel 微信支付渠道配置
type WxpayChannel struct {
	AppID          string `mapstructure:"app_id"`
	MchID          string `mapstructure:"mchid"`
	SerialNo       string `mapstructure:"serial"`
	PrivateKey     string `mapstructure:"private_key"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	// APIV3Key 微信商户平台设置的 32 位 APIv3 密钥
	APIV3Key string `mapstructure:"api_v3_key"`
	// OnlyNative 为 true 时 H5 场景也强制扫码
	OnlyNative bool `mapstructure:"only_native"`
}

// FormRewriteConfig 订单文案改写配置
type FormRewriteConfig struct {
	Rewrite bool     `mapstructure:"rewrite"`
	Text    []string `mapstructure:"text"`
}

// FormConfig 提交到渠道的订单文案改写
type FormConfig struct {
	Subject FormRewriteConfig `mapstructure:"subject"`
	Body    FormRewriteConfig `mapstructure:"body"`
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/mysql/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// ForwardConfig 回源通知配置
type ForwardConfig struct {
	TimeoutSeconds  int `mapstructure:"timeout_seconds"`
	MaxAttempts     int `mapstructure:"max_attempts"`
	BackoffSeconds  int `mapstructure:"backoff_seconds"`
	MaxResponseSize int `mapstructure:"max_response_size"`
}

// RateLimitConfig 下单接口限流配置
type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	WindowSeconds int  `mapstructure:"window_seconds"`
	MaxRequests   int  `mapstructure:"max_requests"`
}

// MerchantKey 按商户号查找密钥
func (c *Config) MerchantKey(pid int) (string, bool) {
	for _, m := range c.Merchants {
		if m.PID == pid {
			return m.Key, true
		}
	}
	return "", false
}

// ResolvePrivateKey 返回支付宝应用私钥内容
func (c AlipayChannel) ResolvePrivateKey() (string, error) {
	return resolveSecret(c.PrivateKey, c.PrivateKeyPath)
}

// ResolvePublicKey 返回支付宝公钥内容
func (c AlipayChannel) ResolvePublicKey() (string, error) {
	return resolveSecret(c.AlipayPublicKey, c.AlipayPublicKeyPath)
}

// ResolvePrivateKey 返回微信商户私钥内容
func (c WxpayChannel) ResolvePrivateKey() (string, error) {
	return resolveSecret(c.PrivateKey, c.PrivateKeyPath)
}

func resolveSecret(inline, path string) (string, error) {
	if strings.TrimSpace(inline) != "" {
		return inline, nil
	}
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key file %s failed: %w", path, err)
	}
	return string(raw), nil
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	// 设置默认值（可选）
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "3020")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "gateway.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("web.pay_url", "http://127.0.0.1:3020")
	viper.SetDefault("form.subject.rewrite", false)
	viper.SetDefault("form.subject.text", []string{})
	viper.SetDefault("form.body.rewrite", false)
	viper.SetDefault("form.body.text", []string{})
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/gopay.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "gopay")
	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	viper.SetDefault("forward.timeout_seconds", 25)
	viper.SetDefault("forward.max_attempts", 3)
	viper.SetDefault("forward.backoff_seconds", 1)
	viper.SetDefault("forward.max_response_size", 1048576)
	viper.SetDefault("rate_limit.enabled", false)
	viper.SetDefault("rate_limit.window_seconds", 60)
	viper.SetDefault("rate_limit.max_requests", 120)

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
