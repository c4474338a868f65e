package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile      string `env:"LOG_FILE"`
	LogMaxSizeMB int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`

	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	AdminAddr string `env:"ADMIN_ADDR" envDefault:":9091"`

	PostgresURL string `env:"POSTGRES_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	JWTSecret          string `env:"JWT_SECRET,required"`
	JWTIssuer          string `env:"JWT_ISSUER"`
	IdentityAdminURL   string `env:"IDENTITY_ADMIN_URL"`
	IdentityServiceKey string `env:"IDENTITY_SERVICE_KEY"`
	AuthEventsChannel  string `env:"AUTH_EVENTS_CHANNEL" envDefault:"auth:events"`

	ProfileRetryAttempts int           `env:"PROFILE_RETRY_ATTEMPTS" envDefault:"4"`
	ProfileRetryBackoff  time.Duration `env:"PROFILE_RETRY_BACKOFF" envDefault:"250ms"`
	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`

	MaxWebhookBodyBytes   int64         `env:"MAX_WEBHOOK_BODY_BYTES" envDefault:"1048576"` // 1MB
	TokenNegativeCacheTTL time.Duration `env:"TOKEN_NEGATIVE_CACHE_TTL" envDefault:"30s"`
	InboundRateLimitRPS   float64       `env:"INBOUND_RATE_LIMIT_RPS" envDefault:"20"`
	InboundRateLimitBurst int           `env:"INBOUND_RATE_LIMIT_BURST" envDefault:"40"`

	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"10s"`

	NotifyStream       string        `env:"NOTIFY_STREAM" envDefault:"lead_notifications"`
	NotifyDLQStream    string        `env:"NOTIFY_DLQ_STREAM" envDefault:"lead_notifications_dlq"`
	NotifyGroup        string        `env:"NOTIFY_GROUP" envDefault:"notifiers"`
	NotifyMaxAttempts  int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
	NotifyRetryBackoff time.Duration `env:"NOTIFY_RETRY_BACKOFF" envDefault:"1s"`
	NotifyConcurrency  int           `env:"NOTIFY_CONCURRENCY" envDefault:"8"`
	NotifyClaimIdle    time.Duration `env:"NOTIFY_CLAIM_IDLE" envDefault:"1m"`

	WALPath        string `env:"WAL_PATH" envDefault:"./data/wal"`
	WALSegmentSize int64  `env:"WAL_SEGMENT_SIZE_BYTES" envDefault:"10485760"`   // 10MB
	WALMaxDiskSize int64  `env:"WAL_MAX_DISK_SIZE_BYTES" envDefault:"104857600"` // 100MB
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
