package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host    string // 监听地址，默认 "0.0.0.0"
	Port    int    // 监听端口，默认 8080
	BaseURL string // 确认链接使用的外部可达地址，默认 "http://localhost:8080"
}

// MailConfig 定义出站邮件投递配置
type MailConfig struct {
	SMTPAddr      string // 上游 SMTP 中继地址，格式 "host:port"
	SMTPUsername  string // 中继认证用户名，留空表示匿名投递
	SMTPPassword  string // 中继认证密码
	Sender        string // 发件地址
	SendRate      int    // 每秒最大发送数，0 表示不限速
	FanoutWorkers int    // 群发并发度，默认 8
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 会话存储配置
type RedisConfig struct {
	Enabled  bool   // 是否用 Redis 存储会话，默认 false（随主存储）
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// SessionConfig 定义管理员会话配置
type SessionConfig struct {
	Secret string        // 会话令牌签名密钥，必须至少 32 字符
	Issuer string        // 令牌签发者标识，默认 "newsletter"
	TTL    time.Duration // 会话有效期，默认 24 小时
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server   ServerConfig   // HTTP 服务器配置
	Mail     MailConfig     // 出站邮件配置
	CORS     CORSConfig     // 跨域配置
	Log      LogConfig      // 日志配置
	Database DatabaseConfig // 数据库配置
	Redis    RedisConfig    // Redis 配置
	Session  SessionConfig  // 会话配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: NEWSLETTER_
// 例如: NEWSLETTER_SERVER_PORT, NEWSLETTER_SESSION_SECRET
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("newsletter")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("mail.smtp_addr", "localhost:25")
	viper.SetDefault("mail.smtp_username", "")
	viper.SetDefault("mail.smtp_password", "")
	viper.SetDefault("mail.sender", "")
	viper.SetDefault("mail.send_rate", 0)
	viper.SetDefault("mail.fanout_workers", 8)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("session.secret", "change-me-in-production")
	viper.SetDefault("session.issuer", "newsletter")
	viper.SetDefault("session.ttl", "24h")

	baseURL := strings.TrimRight(viper.GetString("server.base_url"), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("server.base_url must not be empty")
	}

	sender := viper.GetString("mail.sender")
	if sender == "" {
		return nil, fmt.Errorf("mail.sender must be set (NEWSLETTER_MAIL_SENDER)")
	}

	fanoutWorkers := viper.GetInt("mail.fanout_workers")
	if fanoutWorkers <= 0 {
		fanoutWorkers = 8
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	sessionTTL, err := time.ParseDuration(viper.GetString("session.ttl"))
	if err != nil {
		sessionTTL = 24 * time.Hour
	}

	sessionSecret := viper.GetString("session.secret")

	// 安全检查：禁止使用默认的会话密钥
	if sessionSecret == "change-me-in-production" {
		return nil, fmt.Errorf("SECURITY ERROR: session secret cannot be the default value. Please set NEWSLETTER_SESSION_SECRET environment variable")
	}
	if len(sessionSecret) < 32 {
		return nil, fmt.Errorf("SECURITY ERROR: session secret must be at least 32 characters long")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:    viper.GetString("server.host"),
			Port:    viper.GetInt("server.port"),
			BaseURL: baseURL,
		},
		Mail: MailConfig{
			SMTPAddr:      viper.GetString("mail.smtp_addr"),
			SMTPUsername:  viper.GetString("mail.smtp_username"),
			SMTPPassword:  viper.GetString("mail.smtp_password"),
			Sender:        sender,
			SendRate:      viper.GetInt("mail.send_rate"),
			FanoutWorkers: fanoutWorkers,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Session: SessionConfig{
			Secret: sessionSecret,
			Issuer: viper.GetString("session.issuer"),
			TTL:    sessionTTL,
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 环境变量不会被覆盖，已存在的环境变量优先级更高。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
