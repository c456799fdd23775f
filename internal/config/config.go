package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrMissingValue = errors.New("missing required configuration value")

type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Security  SecurityConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	Rabbit    RabbitConfig
	Websocket WebsocketConfig
}

type ServerConfig struct {
	Port string
}

type LoggingConfig struct {
	Directory string
	Level     string
	Format    string
}

type SecurityConfig struct {
	JWTSecret    string
	JWTPublicKey string
}

// StoreConfig selects the document store backend ("memory" or "postgres").
type StoreConfig struct {
	Driver     string
	OpTimeout  time.Duration
	RunMigrate bool
}

type PostgresConfig struct {
	URL string
}

type KafkaConfig struct {
	Brokers      []string
	GroupID      string
	ChangesTopic string
}

// Enabled reports whether a change feed should be published and consumed.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && strings.TrimSpace(k.ChangesTopic) != ""
}

type RabbitConfig struct {
	URL      string
	Exchange string
}

type WebsocketConfig struct {
	SendBuffer int
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Port: envOr("PORT", "8080")},
		Logging: LoggingConfig{
			Directory: envOr("LOG_DIR", "./logs"),
			Level:     envOr("LOG_LEVEL", "info"),
			Format:    envOr("LOG_FORMAT", "text"),
		},
		Security: SecurityConfig{
			JWTSecret:    os.Getenv("JWT_SECRET"),
			JWTPublicKey: os.Getenv("JWT_PUBLIC_KEY"),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(envOr("STORE_DRIVER", "memory")),
			OpTimeout:  envDuration("STORE_OP_TIMEOUT", 10*time.Second),
			RunMigrate: envBool("STORE_MIGRATE", true),
		},
		Postgres: PostgresConfig{URL: os.Getenv("DATABASE_URL")},
		Kafka: KafkaConfig{
			Brokers:      splitList(firstNonEmpty(os.Getenv("KAFKA_BROKERS"), os.Getenv("KAFKA_BROKER"))),
			GroupID:      envOr("KAFKA_GROUP_ID", "tableside"),
			ChangesTopic: envOr("KAFKA_CHANGES_TOPIC", "tableside.changes"),
		},
		Rabbit: RabbitConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: envOr("RABBITMQ_EXCHANGE", "customer_notifications"),
		},
		Websocket: WebsocketConfig{SendBuffer: envInt("WS_SEND_BUFFER", 16)},
	}

	if strings.TrimSpace(cfg.Security.JWTSecret) == "" && strings.TrimSpace(cfg.Security.JWTPublicKey) == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET or JWT_PUBLIC_KEY", ErrMissingValue)
	}
	switch cfg.Store.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(cfg.Postgres.URL) == "" {
			return nil, fmt.Errorf("%w: DATABASE_URL", ErrMissingValue)
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.Store.Driver)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
