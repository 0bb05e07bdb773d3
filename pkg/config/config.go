// Package config 提供 TOML 配置加载、环境变量覆盖与默认值
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/wyfcoding/primecredit/pkg/logger"
)

// Config 服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 记账引擎参数
	Engine EngineConfig `mapstructure:"engine"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
	// 限流桶容量
	RateLimitBurst int `mapstructure:"rate_limit_burst"`
	// 每秒补充令牌数
	RateLimitPerSecond int `mapstructure:"rate_limit_per_second"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：mysql
	Driver string `mapstructure:"driver"`
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用 SQL 日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 主机地址
	Host string `mapstructure:"host"`
	// 端口
	Port int `mapstructure:"port"`
	// 密码
	Password string `mapstructure:"password"`
	// 数据库编号
	DB int `mapstructure:"db"`
	// 最大连接数
	MaxPoolSize int `mapstructure:"max_pool_size"`
	// 连接超时（秒）
	ConnTimeout int `mapstructure:"conn_timeout"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	// 是否启用事件发布
	Enabled bool `mapstructure:"enabled"`
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// 账本事件主题
	LedgerTopic string `mapstructure:"ledger_topic"`
	// 最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// Prometheus 监听端口
	Port int `mapstructure:"port"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// EngineConfig 记账引擎经济参数
type EngineConfig struct {
	// 质押收益年化（如 0.042 = 4.2%）
	CollateralAPY float64 `mapstructure:"collateral_apy"`
	// 信用代币持有收益年化
	CreditTokenAPY float64 `mapstructure:"credit_token_apy"`
	// 债务利息年化
	DebtAPR float64 `mapstructure:"debt_apr"`
	// 最大贷款价值比
	LoanToValue float64 `mapstructure:"loan_to_value"`
	// 信用发放手续费率
	OriginationFeeRate float64 `mapstructure:"origination_fee_rate"`
	// 信用代币余额上限（演示模式用，0 表示不限制）
	MaxTokenBalance float64 `mapstructure:"max_token_balance"`
	// 清算预警健康因子阈值
	LiquidationThreshold float64 `mapstructure:"liquidation_threshold"`
	// 风险提示健康因子阈值
	CautionThreshold float64 `mapstructure:"caution_threshold"`
	// 抵押资产参考价（symbol -> 价格）
	ReferencePrices map[string]float64 `mapstructure:"reference_prices"`
	// 允许创建资产的机构账户
	InstitutionAccounts []string `mapstructure:"institution_accounts"`
	// 全局暂停开关，开启后拒绝所有变更操作
	Paused bool `mapstructure:"paused"`
}

// Load 从 TOML 文件加载配置，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix("PRIME")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.Engine.LoanToValue <= 0 || c.Engine.LoanToValue >= 1 {
		return fmt.Errorf("invalid loan_to_value: %f", c.Engine.LoanToValue)
	}
	if c.Engine.OriginationFeeRate < 0 || c.Engine.OriginationFeeRate >= 1 {
		return fmt.Errorf("invalid origination_fee_rate: %f", c.Engine.OriginationFeeRate)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)
	v.SetDefault("http.rate_limit_burst", 200)
	v.SetDefault("http.rate_limit_per_second", 100)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.ledger_topic", "prime.ledger.events")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("engine.collateral_apy", 0.042)
	v.SetDefault("engine.credit_token_apy", 0.045)
	v.SetDefault("engine.debt_apr", 0.035)
	v.SetDefault("engine.loan_to_value", 0.80)
	v.SetDefault("engine.origination_fee_rate", 0.003)
	v.SetDefault("engine.max_token_balance", 10000)
	v.SetDefault("engine.liquidation_threshold", 1.2)
	v.SetDefault("engine.caution_threshold", 1.5)
	v.SetDefault("engine.paused", false)
	v.SetDefault("engine.reference_prices", map[string]float64{
		"MNT":  0.85,
		"METH": 2500,
	})
}
