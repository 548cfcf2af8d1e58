package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию companion-server.
type Config struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9091"`

	// Настройки PostgreSQL
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNECTIONS" default:"10"`

	// Настройки Redis (кэш горячих состояний)
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	StateCacheTTL time.Duration `envconfig:"STATE_CACHE_TTL" default:"15m"`

	// Настройки RabbitMQ
	RabbitMQURL     string `envconfig:"RABBITMQ_URL" required:"true"`
	TurnTaskQueue   string `envconfig:"TURN_TASK_QUEUE" default:"companion_turn_tasks"`
	TurnResultQueue string `envconfig:"TURN_RESULT_QUEUE" default:"companion_turn_results"`

	// Настройки внешнего генератора (OpenAI-совместимый API)
	GeneratorAPIKey  string        `envconfig:"GENERATOR_API_KEY" required:"true"`
	GeneratorBaseURL string        `envconfig:"GENERATOR_BASE_URL" default:""`
	GeneratorModel   string        `envconfig:"GENERATOR_MODEL" default:"deepseek/deepseek-chat"`
	GeneratorTimeout time.Duration `envconfig:"GENERATOR_TIMEOUT" default:"60s"`

	// Тюнинг движка. Значения по умолчанию совпадают с DefaultConfig
	// соответствующих пакетов.
	EmotionDecayFactor float64       `envconfig:"EMOTION_DECAY_FACTOR" default:"0.95"`
	XPDailyCeiling     float64       `envconfig:"XP_DAILY_CEILING" default:"500"`
	SpamWindow         time.Duration `envconfig:"SPAM_WINDOW" default:"10m"`
	MaxCommitRetries   int           `envconfig:"MAX_COMMIT_RETRIES" default:"3"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации companion-server: %w", err)
	}
	return &cfg, nil
}
