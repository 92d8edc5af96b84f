// Package config 配置管理模块
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 全局配置结构
type Config struct {
	Name     string `json:"name" env:"NAME"`
	Debug    bool   `json:"debug" env:"DEBUG"`
	Timezone string `json:"timezone" env:"TIMEZONE"`
	LogDir   string `json:"log_dir" env:"LOG_DIR"`

	Database  DatabaseConfig  `json:"database" envPrefix:"DB_"`
	API       APIConfig       `json:"api" envPrefix:"API_"`
	Draw      DrawConfig      `json:"draw" envPrefix:"DRAW_"`
	Scheduler SchedulerConfig `json:"scheduler" envPrefix:"SCHEDULER_"`
	Cache     CacheConfig     `json:"cache" envPrefix:"CACHE_"`
	Audit     AuditConfig     `json:"audit" envPrefix:"AUDIT_"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver" env:"DRIVER"` // mysql / sqlite
	Host     string `json:"host" env:"HOST"`
	Port     int    `json:"port" env:"PORT"`
	User     string `json:"user" env:"USER"`
	Password string `json:"password" env:"PASSWORD"`
	Name     string `json:"name" env:"NAME"`
	Path     string `json:"path" env:"PATH"` // sqlite 文件路径

	MaxIdleConns int `json:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	MaxOpenConns int `json:"max_open_conns" env:"MAX_OPEN_CONNS"`
}

// APIConfig Web API 配置
type APIConfig struct {
	Enabled      bool     `json:"enabled" env:"ENABLED"`
	Host         string   `json:"host" env:"HOST"`
	Port         int      `json:"port" env:"PORT"`
	AllowOrigins []string `json:"allow_origins" env:"ALLOW_ORIGINS"`
}

// DrawConfig 抽奖事务配置
type DrawConfig struct {
	MaxAttempts      int `json:"max_attempts" env:"MAX_ATTEMPTS"`           // 事务冲突时的最大尝试次数
	LockWaitSeconds  int `json:"lock_wait_seconds" env:"LOCK_WAIT_SECONDS"` // 单次尝试等待锁的上限
	BackoffInitialMs int `json:"backoff_initial_ms" env:"BACKOFF_INITIAL_MS"`
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	AutoAdvance        bool `json:"auto_advance" env:"AUTO_ADVANCE"`                 // 是否启用自动抽奖
	MinIntervalSeconds int  `json:"min_interval_seconds" env:"MIN_INTERVAL_SECONDS"` // 自动抽奖最小间隔
	ReconcileMinutes   int  `json:"reconcile_minutes" env:"RECONCILE_MINUTES"`       // 轮次缓存校正间隔，0 表示关闭
}

// CacheConfig 缓存配置
type CacheConfig struct {
	BreakdownTTLSeconds int `json:"breakdown_ttl_seconds" env:"BREAKDOWN_TTL_SECONDS"`
}

// AuditConfig 操作审计配置
type AuditConfig struct {
	WebhookURL     string `json:"webhook_url" env:"WEBHOOK_URL"`
	WebhookSecret  string `json:"webhook_secret" env:"WEBHOOK_SECRET"`
	TelegramToken  string `json:"telegram_token" env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `json:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`
}

// envPrefix 环境变量前缀，例如 SHUFFLE_DB_HOST
const envPrefix = "SHUFFLE_"

// Load 加载配置文件，文件不存在时仅使用默认值与环境变量
func Load(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := env.ParseWithOptions(&config, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	// 设置默认值
	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default 返回仅包含默认值的配置
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Gift Shuffle"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Shanghai"
	}
	if c.LogDir == "" {
		c.LogDir = "log"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Path == "" {
		c.Database.Path = "shuffle.db"
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 100
	}
	if c.API.Port == 0 {
		c.API.Port = 8838
	}
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if len(c.API.AllowOrigins) == 0 {
		c.API.AllowOrigins = []string{"*"}
	}
	if c.Draw.MaxAttempts == 0 {
		c.Draw.MaxAttempts = 3
	}
	if c.Draw.LockWaitSeconds == 0 {
		c.Draw.LockWaitSeconds = 5
	}
	if c.Draw.BackoffInitialMs == 0 {
		c.Draw.BackoffInitialMs = 50
	}
	if c.Scheduler.MinIntervalSeconds == 0 {
		c.Scheduler.MinIntervalSeconds = 3
	}
	if c.Cache.BreakdownTTLSeconds == 0 {
		c.Cache.BreakdownTTLSeconds = 300
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	if c.Draw.MaxAttempts < 1 {
		return fmt.Errorf("draw.max_attempts 必须大于 0")
	}
	if c.Draw.LockWaitSeconds < 1 {
		return fmt.Errorf("draw.lock_wait_seconds 必须大于 0")
	}
	return nil
}

// Location 获取配置的时区，解析失败时回退到 UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LockWait 单次抽奖事务的锁等待上限
func (d DrawConfig) LockWait() time.Duration {
	return time.Duration(d.LockWaitSeconds) * time.Second
}

// BackoffInitial 重试退避的初始间隔
func (d DrawConfig) BackoffInitial() time.Duration {
	return time.Duration(d.BackoffInitialMs) * time.Millisecond
}

// BreakdownTTL 奖品配置缓存时长
func (c CacheConfig) BreakdownTTL() time.Duration {
	return time.Duration(c.BreakdownTTLSeconds) * time.Second
}
