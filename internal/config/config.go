package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds process-level settings loaded from the environment.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// Persistence
	PostgresDSN string `envconfig:"POSTGRES_DSN" required:"true"`

	// External market listing store
	ListingEndpoint string        `envconfig:"LISTING_ENDPOINT" default:"http://localhost:9090/listings"`
	ListingTimeout  time.Duration `envconfig:"LISTING_TIMEOUT" default:"10s"`
	ListingAPIKey   string        `envconfig:"LISTING_API_KEY"`

	// Scheduler sweeps
	PublishSweepInterval   time.Duration `envconfig:"PUBLISH_SWEEP_INTERVAL" default:"3600s"`
	ReconcileSweepInterval time.Duration `envconfig:"RECONCILE_SWEEP_INTERVAL" default:"60m"`
	RetentionSweepInterval time.Duration `envconfig:"RETENTION_SWEEP_INTERVAL" default:"24h"`
	RetentionDays          int           `envconfig:"RETENTION_DAYS" default:"90"`
	RetentionArchive       bool          `envconfig:"RETENTION_ARCHIVE" default:"false"`
	SweepBatchSize         int           `envconfig:"SWEEP_BATCH_SIZE" default:"100"`

	// Ingestion
	IngestAPIKey    string `envconfig:"INGEST_API_KEY"`
	IngestRateLimit int    `envconfig:"INGEST_RATE_LIMIT" default:"120"`

	// Optional event relay
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"storageguard.events"`

	// Observability
	TracingEnabled       bool    `envconfig:"TRACING_ENABLED" default:"false"`
	TracingEndpoint      string  `envconfig:"TRACING_ENDPOINT"`
	TracingProtocol      string  `envconfig:"TRACING_PROTOCOL" default:"grpc"`
	TracingSamplingRatio float64 `envconfig:"TRACING_SAMPLING_RATIO" default:"0.1"`

	// Bootstrap
	SeedDemoData bool `envconfig:"SEED_DEMO_DATA" default:"false"`
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	var c Config
	err := envconfig.Process("", &c)
	return c, err
}

// IsProduction reports whether the process runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// RetentionHorizon converts the configured retention days into a duration.
func (c Config) RetentionHorizon() time.Duration {
	days := c.RetentionDays
	if days <= 0 {
		days = 90
	}
	return time.Duration(days) * 24 * time.Hour
}

// RelayEnabled reports whether the outbox relay should run.
func (c Config) RelayEnabled() bool {
	return c.AMQPURL != ""
}
