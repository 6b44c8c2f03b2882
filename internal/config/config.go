package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration, loaded from the environment.
type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"marketcore"`
	Env         string `envconfig:"ENV" default:"dev"`

	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	// DatabaseURL selects the Postgres store; when empty the process runs on
	// the in-memory store.
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"file://internal/infrastructure/postgres/migrations"`

	// AMQPURL selects the RabbitMQ notification publisher; when empty the
	// in-process bus is used.
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"marketcore.orders"`

	// StoreTimeout bounds every unit of work; a timed-out transaction counts
	// as aborted.
	StoreTimeout    time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
