package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures service-level configuration. Built once in main from the
// environment so the rest of the code never reads os.Getenv.
type Config struct {
	Addr          string
	JWTSigningKey string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig

	// AdvanceRetries bounds the engine's internal read-validate-write loop
	// on version conflicts before the conflict is surfaced to the caller.
	AdvanceRetries int

	// DefinitionCacheTTL bounds how long published definitions live in the
	// Redis read-through cache. Definitions are immutable, so the TTL only
	// limits memory, never staleness.
	DefinitionCacheTTL time.Duration
}

// PostgresConfig holds connection settings for the primary store.
type PostgresConfig struct {
	DSN string
}

// RedisConfig holds connection settings for the definition cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the event outbox publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// PollInterval is how often the outbox worker scans for unpublished
	// events.
	PollInterval time.Duration
	// BatchSize caps how many outbox rows one poll publishes.
	BatchSize int
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("CASEFLOW_ADDR", ":8080"),
		JWTSigningKey:      envOr("CASEFLOW_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdvanceRetries:     envIntOr("CASEFLOW_ADVANCE_RETRIES", 3),
		DefinitionCacheTTL: envDurationOr("CASEFLOW_DEFINITION_CACHE_TTL", 5*time.Minute),
		Postgres: PostgresConfig{
			DSN: os.Getenv("CASEFLOW_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CASEFLOW_REDIS_URL"),
			PoolSize:     envIntOr("CASEFLOW_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("CASEFLOW_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("CASEFLOW_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("CASEFLOW_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("CASEFLOW_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic:        envOr("CASEFLOW_KAFKA_TOPIC", "caseflow.process-events"),
			PollInterval: envDurationOr("CASEFLOW_OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    envIntOr("CASEFLOW_OUTBOX_BATCH_SIZE", 100),
		},
	}
	if brokers := os.Getenv("CASEFLOW_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
