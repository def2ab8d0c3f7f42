package config

import (
	"log"
	"os"

	"EchoJournal/pkg/logger"
	"EchoJournal/pkg/util"
)

// Config 全局配置，按 env 加载
type Config struct {
	Addr     string `env:"ADDR"`
	Mode     string `env:"MODE"` // gin 运行模式 debug/release
	DBDriver string `env:"DB_DRIVER"`
	DSN      string `env:"DSN"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL"`

	JWTSecret       string `env:"JWT_SECRET"`        // 登录态校验
	AudioTokenTTL   int    `env:"AUDIO_TOKEN_TTL"`   // 音频访问令牌有效期（秒）
	SweepStaleAfter int    `env:"SWEEP_STALE_AFTER"` // processing 滞留多少秒后重新入队，0 表示关闭

	WorkerConcurrency int  `env:"WORKER_CONCURRENCY"` // worker 进程的消费协程数
	EmbedWorker       bool `env:"EMBED_WORKER"`       // server 进程内嵌一个 worker（单机部署）

	LLMApiKey  string `env:"LLM_API_KEY"`
	LLMBaseURL string `env:"LLM_BASE_URL"`
	LLMModel   string `env:"LLM_MODEL"`
	STTModel   string `env:"STT_MODEL"`

	Log logger.LogConfig
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = &Config{
		Addr:     util.GetEnvDefault("ADDR", ":8080"),
		Mode:     util.GetEnv("MODE"),
		DBDriver: util.GetEnvDefault("DB_DRIVER", "mysql"),
		DSN:      util.GetEnv("DSN"),

		RedisAddr:     util.GetEnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: util.GetEnv("REDIS_PASSWORD"),
		RedisDB:       int(util.GetIntEnv("REDIS_DB")),

		MinioEndpoint:  util.GetEnv("MINIO_ENDPOINT"),
		MinioAccessKey: util.GetEnv("MINIO_ACCESS_KEY"),
		MinioSecretKey: util.GetEnv("MINIO_SECRET_KEY"),
		MinioBucket:    util.GetEnvDefault("MINIO_BUCKET", "journal-audio"),
		MinioUseSSL:    util.GetBoolEnv("MINIO_USE_SSL"),

		JWTSecret:       util.GetEnv("JWT_SECRET"),
		AudioTokenTTL:   int(util.GetIntEnv("AUDIO_TOKEN_TTL")),
		SweepStaleAfter: int(util.GetIntEnv("SWEEP_STALE_AFTER")),

		WorkerConcurrency: int(util.GetIntEnv("WORKER_CONCURRENCY")),
		EmbedWorker:       util.GetBoolEnv("EMBED_WORKER"),

		LLMApiKey:  util.GetEnv("LLM_API_KEY"),
		LLMBaseURL: util.GetEnv("LLM_BASE_URL"),
		LLMModel:   util.GetEnvDefault("LLM_MODEL", "gpt-4o-mini"),
		STTModel:   util.GetEnvDefault("STT_MODEL", "whisper-1"),

		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
	}

	// 音频令牌有效期默认 5 分钟，上限 10 分钟（bearer token 在 URL 中，必须短）
	if GlobalConfig.AudioTokenTTL <= 0 {
		GlobalConfig.AudioTokenTTL = 300
	}
	if GlobalConfig.AudioTokenTTL > 600 {
		GlobalConfig.AudioTokenTTL = 600
	}
	if GlobalConfig.WorkerConcurrency <= 0 {
		GlobalConfig.WorkerConcurrency = 4
	}
	return nil
}
