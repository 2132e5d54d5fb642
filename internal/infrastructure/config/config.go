package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
// 设计说明：使用Viper管理配置，支持YAML文件、环境变量覆盖
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Commerce  CommerceConfig  `mapstructure:"commerce"`
	Marketing MarketingConfig `mapstructure:"marketing"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 生成MySQL连接字符串
// 注意：loc参数需要URL编码（Asia/Shanghai → Asia%2FShanghai）
func (d DatabaseConfig) DSN() string {
	loc := url.QueryEscape(d.Loc)
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, loc)
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CommerceConfig 商品平台API配置
// 平台限流是按账号计的,所以pacing配置也是进程级的
type CommerceConfig struct {
	BaseURL         string        `mapstructure:"base_url"`          // 如 https://{shop}.example.com/admin/api/2024-01
	AccessToken     string        `mapstructure:"access_token"`      // 平台访问令牌
	MinCallInterval time.Duration `mapstructure:"min_call_interval"` // 相邻调用最小间隔(默认550ms)
	RetryMax        int           `mapstructure:"retry_max"`         // 429/网络错误最大尝试次数
	BackoffBase     time.Duration `mapstructure:"backoff_base"`
	BackoffMax      time.Duration `mapstructure:"backoff_max"`
	BackoffJitter   time.Duration `mapstructure:"backoff_jitter"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
}

// MarketingConfig 营销自动化API配置
type MarketingConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	ListID      string        `mapstructure:"list_id"`     // 补货通知订阅列表
	PauseEvery  int           `mapstructure:"pause_every"` // 每N个订阅者暂停一次
	PauseFor    time.Duration `mapstructure:"pause_for"`   // 暂停时长
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// AuditConfig 审计任务配置
type AuditConfig struct {
	CronSecret    string        `mapstructure:"cron_secret"`    // 触发密钥,为空表示不鉴权(仅开发环境)
	PageSize      int           `mapstructure:"page_size"`      // 商品分页大小(默认50)
	MaxPageSize   int           `mapstructure:"max_page_size"`  // 查询参数可覆盖的上限(默认250)
	TimeBudget    time.Duration `mapstructure:"time_budget"`    // 单轮墙钟预算(默认40s)
	LockTTL       time.Duration `mapstructure:"lock_ttl"`       // 运行锁TTL(默认15m,须大于最坏单轮耗时)
	CursorTTL     time.Duration `mapstructure:"cursor_ttl"`     // 续跑游标TTL(默认6h)
	SnapshotTTL   time.Duration `mapstructure:"snapshot_ttl"`   // 库存快照TTL(默认720h)
	SubscriberTTL time.Duration `mapstructure:"subscriber_ttl"` // 订阅者列表TTL(默认2160h=90天)
}

// Load 加载配置文件
// 支持：
// 1. 默认加载config/config.yaml
// 2. 通过环境变量STOCKWATCH_ENV指定环境（如config.prod.yaml）
// 3. 环境变量覆盖（如STOCKWATCH_COMMERCE_ACCESS_TOKEN）
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	if env := viper.GetString("env"); env != "" {
		v.SetConfigName("config." + env)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	v.SetEnvPrefix("STOCKWATCH")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 审计相关参数的默认值
// 说明:快照/订阅者TTL等参数大多数部署不需要改,给出合理默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("commerce.min_call_interval", 550*time.Millisecond)
	v.SetDefault("commerce.retry_max", 3)
	v.SetDefault("commerce.backoff_base", 500*time.Millisecond)
	v.SetDefault("commerce.backoff_max", 15*time.Second)
	v.SetDefault("commerce.backoff_jitter", 300*time.Millisecond)
	v.SetDefault("commerce.http_timeout", 20*time.Second)

	v.SetDefault("marketing.pause_every", 5)
	v.SetDefault("marketing.pause_for", 500*time.Millisecond)
	v.SetDefault("marketing.http_timeout", 20*time.Second)

	v.SetDefault("audit.page_size", 50)
	v.SetDefault("audit.max_page_size", 250)
	v.SetDefault("audit.time_budget", 40*time.Second)
	v.SetDefault("audit.lock_ttl", 15*time.Minute)
	v.SetDefault("audit.cursor_ttl", 6*time.Hour)
	v.SetDefault("audit.snapshot_ttl", 30*24*time.Hour)
	v.SetDefault("audit.subscriber_ttl", 90*24*time.Hour)
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	if cfg.Audit.PageSize <= 0 || cfg.Audit.PageSize > cfg.Audit.MaxPageSize {
		return fmt.Errorf("无效的分页大小: %d (上限%d)", cfg.Audit.PageSize, cfg.Audit.MaxPageSize)
	}

	// 锁TTL必须大于时间预算,否则运行中锁可能先过期
	if cfg.Audit.LockTTL <= cfg.Audit.TimeBudget {
		return fmt.Errorf("lock_ttl(%v)必须大于time_budget(%v)", cfg.Audit.LockTTL, cfg.Audit.TimeBudget)
	}

	if cfg.Audit.CronSecret == "" && cfg.Server.Mode == "release" {
		return fmt.Errorf("生产环境必须配置audit.cron_secret")
	}

	return nil
}

// RequireUpstream 校验外部API凭据
// 审计Run启动前调用:凭据缺失时整轮直接失败(NotConfigured),部分进度没有意义
func (c *Config) RequireUpstream() error {
	if c.Commerce.BaseURL == "" || c.Commerce.AccessToken == "" {
		return fmt.Errorf("commerce API未配置")
	}
	// list_id参与Subscribe的URL拼接,缺失时宁可整轮快速失败
	// 也不在派发途中打出/lists//subscribe这样的请求
	if c.Marketing.BaseURL == "" || c.Marketing.APIKey == "" || c.Marketing.ListID == "" {
		return fmt.Errorf("marketing API未配置")
	}
	return nil
}
