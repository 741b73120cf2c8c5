package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"checkout"`
	Env         string `envconfig:"ENV" default:"dev"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// Empty DSN selects the in-memory store and ledger.
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:""`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"order-events"`

	GatewayBaseURL       string        `envconfig:"GATEWAY_BASE_URL" default:"https://api.razorpay.com"`
	GatewayKeyID         string        `envconfig:"GATEWAY_KEY_ID"`
	GatewayKeySecret     string        `envconfig:"GATEWAY_KEY_SECRET"`
	GatewayWebhookSecret string        `envconfig:"GATEWAY_WEBHOOK_SECRET"`
	GatewayTimeout       time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`

	Currency string `envconfig:"CURRENCY" default:"INR"`

	ReservationTTL time.Duration `envconfig:"RESERVATION_TTL" default:"30m"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
