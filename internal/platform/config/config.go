package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures process level configuration.
type Server struct {
	Addr          string        `env:"FLIGHTSURETY_ADDR" envDefault:":8080"`
	JWTSigningKey string        `env:"JWT_SIGNING_KEY"`
	DevMode       bool          `env:"FLIGHTSURETY_DEV_MODE" envDefault:"false"`
	TokenTTL      time.Duration `env:"JWT_TOKEN_TTL" envDefault:"1h"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT" envDefault:"json"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	EventBus      string        `env:"EVENT_BUS" envDefault:"memory"`

	EventBufferCapacity int `env:"EVENT_BUFFER_CAPACITY" envDefault:"10000"`

	Ledger     LedgerConfig
	Deployment DeploymentConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	RateLimit  RateLimitConfig
}

// LedgerConfig names the accounts a fresh ledger starts with.
type LedgerConfig struct {
	Owner            string `env:"LEDGER_OWNER" envDefault:"0x627306090abab3a6e1400e9345bc60c78a8bef57"`
	FirstAirline     string `env:"LEDGER_FIRST_AIRLINE" envDefault:"0xf17f52151ebef6c7334fad080c5704d77216b732"`
	FirstAirlineName string `env:"LEDGER_FIRST_AIRLINE_NAME" envDefault:"First Airline"`
}

// DeploymentConfig is the record shared with the front-end and the oracle relay.
type DeploymentConfig struct {
	LedgerEndpoint      string `env:"DEPLOYMENT_LEDGER_ENDPOINT" envDefault:"http://localhost:8080"`
	DataContractAddress string `env:"DEPLOYMENT_DATA_ADDRESS"`
	AppContractAddress  string `env:"DEPLOYMENT_APP_ADDRESS"`
}

// RedisConfig configures the Redis pub/sub event bus.
type RedisConfig struct {
	URL           string        `env:"REDIS_URL"`
	PoolSize      int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns  int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout   time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout   time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout  time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	ChannelPrefix string        `env:"REDIS_CHANNEL_PREFIX" envDefault:"flightsurety"`
}

// KafkaConfig configures the Kafka event bus.
type KafkaConfig struct {
	Brokers           []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic             string        `env:"KAFKA_TOPIC" envDefault:"flightsurety.events"`
	ClientID          string        `env:"KAFKA_CLIENT_ID" envDefault:"flightsurety"`
	Partitions        int32         `env:"KAFKA_PARTITIONS" envDefault:"3"`
	ReplicationFactor int16         `env:"KAFKA_REPLICATION_FACTOR" envDefault:"1"`
	Linger            time.Duration `env:"KAFKA_LINGER" envDefault:"5ms"`
}

// RateLimitConfig bounds authenticated mutations per caller. The window is
// shared through Redis when REDIS_URL is set.
type RateLimitConfig struct {
	Disabled bool          `env:"RATE_LIMIT_DISABLED" envDefault:"false"`
	Limit    int           `env:"RATE_LIMIT_PER_WINDOW" envDefault:"120"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// DevSigningKey is used when JWT_SIGNING_KEY is unset in dev mode. It is
// public, so a ledger outside dev mode refuses to start with it.
const DevSigningKey = "dev-secret-key-change-in-production"

const minSigningKeyLength = 32

const (
	EventBusMemory = "memory"
	EventBusRedis  = "redis"
	EventBusKafka  = "kafka"
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := resolveSigningKey(&cfg); err != nil {
		return Server{}, err
	}
	switch cfg.EventBus {
	case EventBusMemory, EventBusRedis, EventBusKafka:
	default:
		return Server{}, fmt.Errorf("unknown EVENT_BUS %q", cfg.EventBus)
	}
	if cfg.EventBus == EventBusRedis && cfg.Redis.URL == "" {
		return Server{}, fmt.Errorf("EVENT_BUS=redis requires REDIS_URL")
	}
	if cfg.EventBus == EventBusKafka && len(cfg.Kafka.Brokers) == 0 {
		return Server{}, fmt.Errorf("EVENT_BUS=kafka requires KAFKA_BROKERS")
	}
	if !cfg.RateLimit.Disabled && (cfg.RateLimit.Limit <= 0 || cfg.RateLimit.Window <= 0) {
		return Server{}, fmt.Errorf("RATE_LIMIT_PER_WINDOW and RATE_LIMIT_WINDOW must be positive")
	}
	return cfg, nil
}

func resolveSigningKey(cfg *Server) error {
	if cfg.DevMode {
		if cfg.JWTSigningKey == "" {
			cfg.JWTSigningKey = DevSigningKey
		}
		return nil
	}
	switch {
	case cfg.JWTSigningKey == "":
		return fmt.Errorf("JWT_SIGNING_KEY is required unless FLIGHTSURETY_DEV_MODE is set")
	case cfg.JWTSigningKey == DevSigningKey:
		return fmt.Errorf("JWT_SIGNING_KEY must not be the dev key outside FLIGHTSURETY_DEV_MODE")
	case len(cfg.JWTSigningKey) < minSigningKeyLength:
		return fmt.Errorf("JWT_SIGNING_KEY must be at least %d bytes", minSigningKeyLength)
	}
	return nil
}
