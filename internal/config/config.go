package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Mail   MailConfig
	Chat   ChatConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	redis, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Auth:   auth,
		Mongo:  loadMongoConfig(),
		Redis:  redis,
		Mail:   loadMailConfig(),
		Chat:   loadChatConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8001"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8001" 或 "127.0.0.1:8001"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AuthConfig 描述令牌签发配置。
type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// loadAuthConfig 解析签名密钥与令牌有效期。
func loadAuthConfig() (AuthConfig, error) {
	secret := strings.TrimSpace(os.Getenv("AUTH_SECRET"))
	if secret == "" {
		return AuthConfig{}, fmt.Errorf("AUTH_SECRET is required")
	}

	ttl := 30 * time.Minute
	if raw := strings.TrimSpace(os.Getenv("AUTH_TOKEN_TTL_MINUTES")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return AuthConfig{}, fmt.Errorf("invalid AUTH_TOKEN_TTL_MINUTES value: %q", raw)
		}
		ttl = time.Duration(minutes) * time.Minute
	}

	return AuthConfig{Secret: secret, TokenTTL: ttl}, nil
}

// MongoConfig 描述 MongoDB 连接配置。
type MongoConfig struct {
	URI      string
	Database string
}

// loadMongoConfig 解析 MongoDB 连接参数；不配置则使用内存存储。
func loadMongoConfig() MongoConfig {
	db := strings.TrimSpace(os.Getenv("MONGO_DATABASE"))
	if db == "" {
		db = "projectsdb"
	}
	return MongoConfig{
		URI:      strings.TrimSpace(os.Getenv("MONGO_URI")),
		Database: db,
	}
}

// Enabled 表示是否提供了 MongoDB 连接串。
func (c MongoConfig) Enabled() bool {
	return c.URI != ""
}

// RedisConfig 描述 Redis 连接配置（重置码存储）。
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// loadRedisConfig 解析 Redis 连接参数；不配置则使用内存存储。
func loadRedisConfig() (RedisConfig, error) {
	cfg := RedisConfig{
		Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
	if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil || db < 0 {
			return RedisConfig{}, fmt.Errorf("invalid REDIS_DB value: %q", raw)
		}
		cfg.DB = db
	}
	return cfg, nil
}

// Enabled 表示是否提供了 Redis 地址。
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// MailConfig 描述邮件发送配置。
type MailConfig struct {
	SendGridKey string
	FromEmail   string
}

// loadMailConfig 解析 SendGrid 凭证；不配置则只记录日志。
func loadMailConfig() MailConfig {
	return MailConfig{
		SendGridKey: strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
		FromEmail:   strings.TrimSpace(os.Getenv("FROM_EMAIL")),
	}
}

// Enabled 表示是否提供了必需的邮件凭证。
func (c MailConfig) Enabled() bool {
	return c.SendGridKey != "" && c.FromEmail != ""
}

// ChatConfig 描述聊天室配置。
type ChatConfig struct {
	HistoryLimit int
}

// loadChatConfig 解析历史回放条数。
func loadChatConfig() ChatConfig {
	limit := 50
	if raw := strings.TrimSpace(os.Getenv("CHAT_HISTORY_LIMIT")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return ChatConfig{HistoryLimit: limit}
}
