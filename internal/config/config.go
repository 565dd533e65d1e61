package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const (
	WorkflowConfirmation = "confirmation"
	WorkflowDirect       = "direct"
)

type Config struct {
	Env          string `env:"ENV" env-default:"local"`
	Storage      string `env:"STORAGE" env-default:"postgres"`
	Workflow     string `env:"WORKFLOW" env-default:"confirmation"`
	RewardPoints int    `env:"REWARD_POINTS" env-default:"50"`

	HTTP     HTTPConfig
	GRPC     GRPCConfig
	Postgres PostgresConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
}

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" env-default:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type GRPCConfig struct {
	Addr string `env:"GRPC_ADDR" env-default:":9090"`
}

type PostgresConfig struct {
	Host           string `env:"DB_HOST" env-default:"localhost"`
	Port           string `env:"DB_PORT" env-default:"5432"`
	User           string `env:"DB_USER" env-default:"postgres"`
	Password       string `env:"DB_PASSWORD"`
	DBName         string `env:"DB_NAME" env-default:"entraide"`
	SSLMode        string `env:"DB_SSL_MODE" env-default:"disable"`
	MigrationsPath string `env:"MIGRATIONS_PATH" env-default:"file://migrations"`
	MaxConns       int32  `env:"DB_MAX_CONNS" env-default:"20"`
	MinConns       int32  `env:"DB_MIN_CONNS" env-default:"2"`
}

func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type RabbitMQConfig struct {
	// пустой URL отключает публикацию и history worker
	URL   string `env:"RABBITMQ_URL"`
	Queue string `env:"RABBITMQ_QUEUE" env-default:"task_events"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"POINTS_CACHE_TTL" env-default:"5m"`
}

type KafkaConfig struct {
	Brokers string `env:"KAFKA_BROKERS"`
	Topic   string `env:"KAFKA_TOPIC" env-default:"task-events"`
}

func (c KafkaConfig) BrokerList() []string {
	var result []string
	for _, part := range strings.Split(c.Brokers, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET_KEY" env-default:"your-secret-key-change-in-production"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL" env-default:"15m"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL" env-default:"168h"`
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env not found, using environment variables")
	}

	cfg := new(Config)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Env {
	case EnvDev, EnvProd, EnvLocal:
	default:
		return fmt.Errorf("unknown env: %s", c.Env)
	}
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage: %s", c.Storage)
	}
	switch c.Workflow {
	case WorkflowConfirmation, WorkflowDirect:
	default:
		return fmt.Errorf("unknown workflow: %s", c.Workflow)
	}
	if c.RewardPoints <= 0 {
		return fmt.Errorf("REWARD_POINTS must be positive, got %d", c.RewardPoints)
	}
	return nil
}
