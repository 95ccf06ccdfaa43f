package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Index    IndexConfig    `mapstructure:"index"`
	Document DocumentConfig `mapstructure:"document"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Search   SearchConfig   `mapstructure:"search"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Queue    QueueConfig    `mapstructure:"queue"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`          // 服务器主机
	Port         int           `mapstructure:"port"`          // 服务器端口
	Mode         string        `mapstructure:"mode"`          // gin运行模式: debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // 读取超时
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // 写入超时
}

// Addr 监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	File       string `mapstructure:"file"`        // 日志文件，为空时只输出到终端
	MaxSize    int    `mapstructure:"max_size"`    // 单个文件最大MB
	MaxBackups int    `mapstructure:"max_backups"` // 保留的旧文件数
	MaxAge     int    `mapstructure:"max_age"`     // 保留天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // 数据库类型，目前仅支持sqlite
	DSN  string `mapstructure:"dsn"`  // 数据源名称
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type"`     // 存储类型：local 或 minio
	Path      string `mapstructure:"path"`     // 本地存储路径
	Bucket    string `mapstructure:"bucket"`   // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// IndexConfig 全文索引配置
type IndexConfig struct {
	Type string `mapstructure:"type"` // bleve 或 memory
	Path string `mapstructure:"path"` // 索引目录
}

// DocumentConfig 文档处理配置
type DocumentConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`    // 分块大小（字符）
	ChunkOverlap int `mapstructure:"chunk_overlap"` // 分块重叠大小（字符）
	ParseWorkers int `mapstructure:"parse_workers"` // 并行分块的协程数
}

// AnalyzerConfig 韩文分析器配置
type AnalyzerConfig struct {
	MaxKeywords int `mapstructure:"max_keywords"` // 最多提取的关键词数
}

// SearchConfig 搜索配置
type SearchConfig struct {
	Limit          int     `mapstructure:"limit"`           // 默认返回条数
	ContentBoost   float64 `mapstructure:"content_boost"`   // 原文字段权重
	ProcessedBoost float64 `mapstructure:"processed_boost"` // 分析结果字段权重
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // 是否启用缓存
	Type     string `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 缓存TTL（秒）
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Enable        bool   `mapstructure:"enable"`         // 是否启用任务队列
	Type          string `mapstructure:"type"`           // 队列类型，目前为redis
	RedisAddr     string `mapstructure:"redis_addr"`     // Redis地址
	RedisPassword string `mapstructure:"redis_password"` // Redis密码
	RedisDB       int    `mapstructure:"redis_db"`       // Redis数据库编号
	Concurrency   int    `mapstructure:"concurrency"`    // 任务处理并发数
	RetryLimit    int    `mapstructure:"retry_limit"`    // 任务最大重试次数
	RetryDelay    int    `mapstructure:"retry_delay"`    // 重试延迟(秒)
	TaskTTL       int    `mapstructure:"task_ttl"`       // 任务记录保留时间(小时)
}

// Load 从文件和环境变量加载配置
// configPath为空时在当前目录寻找config.yaml，文件不存在时只使用默认值和环境变量
func Load(configPath string) (*Config, error) {
	// .env 只补充尚未设置的环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("KOSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	} else {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	expandEnvironment(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置是否合理
func (c *Config) Validate() error {
	if c.Document.ChunkSize <= 0 {
		return fmt.Errorf("document.chunk_size must be positive, got %d", c.Document.ChunkSize)
	}
	if c.Document.ChunkOverlap < 0 || c.Document.ChunkOverlap >= c.Document.ChunkSize {
		return fmt.Errorf("document.chunk_overlap must be in [0, chunk_size), got %d", c.Document.ChunkOverlap)
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("search.limit must be positive, got %d", c.Search.Limit)
	}
	switch c.Storage.Type {
	case "local", "minio":
	default:
		return fmt.Errorf("unsupported storage.type %q", c.Storage.Type)
	}
	return nil
}

var placeholder = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// resolve 把形如${VAR}的值替换为环境变量，未设置时保持原样
func resolve(value string) string {
	m := placeholder.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return value
	}
	if env, ok := os.LookupEnv(m[1]); ok {
		return env
	}
	return value
}

// expandEnvironment 处理配置中的密钥类字段
func expandEnvironment(cfg *Config) {
	cfg.Storage.AccessKey = resolve(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = resolve(cfg.Storage.SecretKey)
	cfg.Storage.Endpoint = resolve(cfg.Storage.Endpoint)
	cfg.Cache.Address = resolve(cfg.Cache.Address)
	cfg.Cache.Password = resolve(cfg.Cache.Password)
	cfg.Queue.RedisAddr = resolve(cfg.Queue.RedisAddr)
	cfg.Queue.RedisPassword = resolve(cfg.Queue.RedisPassword)
	cfg.Database.DSN = resolve(cfg.Database.DSN)
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	// 日志
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)

	// 数据库
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/kosearch.db")

	// 存储
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./data/files")
	v.SetDefault("storage.bucket", "kosearch")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", false)

	// 索引
	v.SetDefault("index.type", "bleve")
	v.SetDefault("index.path", "./data/index")

	// 文档处理
	v.SetDefault("document.chunk_size", 1000)
	v.SetDefault("document.chunk_overlap", 200)
	v.SetDefault("document.parse_workers", 4)

	// 分析器
	v.SetDefault("analyzer.max_keywords", 25)

	// 搜索
	v.SetDefault("search.limit", 10)
	v.SetDefault("search.content_boost", 2.0)
	v.SetDefault("search.processed_boost", 1.5)

	// 缓存
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 600)

	// 队列
	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.type", "redis")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_password", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.retry_limit", 3)
	v.SetDefault("queue.retry_delay", 30)
	v.SetDefault("queue.task_ttl", 168)
}
