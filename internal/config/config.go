// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store drivers.
const (
	DriverDynamo = "dynamodb"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds every setting of the API and the worker.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat  string `envconfig:"LOG_FORMAT" default:"json"`

	AWSRegion           string `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSEndpointOverride string `envconfig:"AWS_ENDPOINT_OVERRIDE"`

	StoreDriver  string `envconfig:"STORE_DRIVER" default:"dynamodb"`
	OrdersTable  string `envconfig:"ORDERS_TABLE" default:"orders"`
	ReturnsTable string `envconfig:"RETURNS_TABLE" default:"return_requests"`
	UserIndex    string `envconfig:"ORDERS_USER_INDEX" default:"user_id-created_at-index"`
	MySQLDSN     string `envconfig:"MYSQL_DSN"`

	NotificationQueueURL string        `envconfig:"NOTIFICATION_QUEUE_URL"`
	NotifyTimeout        time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`

	CatalogBaseURL     string        `envconfig:"CATALOG_BASE_URL" default:"http://localhost:5002"`
	CatalogTimeout     time.Duration `envconfig:"CATALOG_TIMEOUT" default:"5s"`
	CatalogConcurrency int           `envconfig:"CATALOG_CONCURRENCY" default:"4"`

	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"OrderLifecycle"`
	MetricsEnabled   bool   `envconfig:"METRICS_ENABLED" default:"true"`

	SMTP SMTP
}

// SMTP configures the notification worker's mail relay.
type SMTP struct {
	Host            string `envconfig:"SMTP_HOST" default:"localhost"`
	Port            int    `envconfig:"SMTP_PORT" default:"25"`
	Username        string `envconfig:"SMTP_USERNAME"`
	Password        string `envconfig:"SMTP_PASSWORD"`
	From            string `envconfig:"SMTP_FROM" default:"orders@example.com"`
	RecipientDomain string `envconfig:"SMTP_RECIPIENT_DOMAIN" default:"example.com"`
}

// Load reads Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverDynamo, DriverMemory:
	case DriverMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("config: MYSQL_DSN is required for the mysql store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.CatalogConcurrency < 1 {
		return fmt.Errorf("config: CATALOG_CONCURRENCY must be at least 1")
	}
	return nil
}
