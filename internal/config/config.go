// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Session   SessionConfig   `mapstructure:"session"`
	Log       LogConfig       `mapstructure:"log"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// SessionConfig 存储会话相关的配置。
type SessionConfig struct {
	// 聊天会话历史在 Redis 中的保留时间
	HistoryTTLHours int `mapstructure:"history_ttl_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig 存储大语言模型相关的配置。
// base_url 指向 OpenAI 兼容的 chat/completions 接口（默认是 Gemini 的兼容端点）。
type LLMConfig struct {
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	TimeoutSeconds int                 `mapstructure:"timeout_seconds"`
	MaxRetries     int                 `mapstructure:"max_retries"`
	MaxConcurrency int                 `mapstructure:"max_concurrency"`
	// JSONMode 让推荐接口以 response_format=json_object 调用模型
	JSONMode       bool                `mapstructure:"json_mode"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// 课程目录来源
const (
	CatalogSourceFile  = "file"
	CatalogSourceMinIO = "minio"
)

// CatalogConfig 指定课程目录的来源。
type CatalogConfig struct {
	Source string `mapstructure:"source"`
	Path   string `mapstructure:"path"`
	Object string `mapstructure:"object"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时不发送领域事件。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// TracingConfig 存储链路追踪相关的配置。
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// RateLimitConfig 按客户端 IP 限制调用模型的接口。
type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("database.mysql.max_idle_conns", 10)
	v.SetDefault("database.mysql.max_open_conns", 100)
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("jwt.refresh_token_expire_days", 7)
	v.SetDefault("session.history_ttl_hours", 168)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.max_concurrency", 16)
	v.SetDefault("llm.json_mode", false)
	v.SetDefault("catalog.source", CatalogSourceFile)
	v.SetDefault("catalog.path", "courses.json")
	v.SetDefault("kafka.topic", "course-advisor-events")
	v.SetDefault("tracing.service_name", "course-advisor")
	v.SetDefault("tracing.sample_ratio", 0.1)
	v.SetDefault("rate_limit.max_requests", 30)
	v.SetDefault("rate_limit.window_minutes", 1)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("COURSE_ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 常用的密钥类变量不带前缀也能读取
	_ = v.BindEnv("llm.api_key", "COURSE_ADVISOR_LLM_API_KEY", "LLM_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("jwt.secret", "COURSE_ADVISOR_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("database.mysql.dsn", "COURSE_ADVISOR_DATABASE_MYSQL_DSN", "MYSQL_DSN")
	_ = v.BindEnv("database.redis.addr", "COURSE_ADVISOR_DATABASE_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("database.redis.password", "COURSE_ADVISOR_DATABASE_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("minio.access_key_id", "COURSE_ADVISOR_MINIO_ACCESS_KEY_ID", "MINIO_ACCESS_KEY")
	_ = v.BindEnv("minio.secret_access_key", "COURSE_ADVISOR_MINIO_SECRET_ACCESS_KEY", "MINIO_SECRET_KEY")
}

// Load 从指定路径读取 YAML 文件，叠加环境变量后解析为 Config。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Init 初始化配置加载，失败时直接 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}

// Validate 检查启动所必需的配置项。
func (c Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm.api_key 未配置 (可通过 GEMINI_API_KEY 提供)")
	}
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret 未配置")
	}
	switch c.Catalog.Source {
	case CatalogSourceFile:
		if c.Catalog.Path == "" {
			return errors.New("catalog.path 未配置")
		}
	case CatalogSourceMinIO:
		if c.Catalog.Object == "" || c.MinIO.BucketName == "" {
			return errors.New("catalog.object 与 minio.bucket_name 必须同时配置")
		}
	default:
		return fmt.Errorf("未知的 catalog.source: %q", c.Catalog.Source)
	}
	return nil
}
