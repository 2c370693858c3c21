package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	pkgconfig "github.com/roorq/storefront/pkg/config"
	"github.com/roorq/storefront/pkg/database"
	"github.com/roorq/storefront/pkg/tracing"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Auth modes.
const (
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageMinio  = "minio"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"roorq-storefront"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	PublicBaseURL   string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// PostgreSQL. DATABASE_URL wins over the discrete fields.
	DatabaseURL          string        `env:"DATABASE_URL"`
	PostgresHost         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser         string        `env:"POSTGRES_USER" envDefault:"roorq"`
	PostgresPass         string        `env:"POSTGRES_PASSWORD" envDefault:"roorq"`
	PostgresDB           string        `env:"POSTGRES_DB" envDefault:"roorq"`
	PostgresSSL          string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns           int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns           int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime    time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime    time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	SlowQueryThresholdMs int           `env:"DB_SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis
	RedisURL      string        `env:"REDIS_URL"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RoleCacheTTL  time.Duration `env:"ROLE_CACHE_TTL" envDefault:"60s"`

	// Kafka
	KafkaEnabled         bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers         []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	NotificationsEnabled bool     `env:"NOTIFICATIONS_ENABLED" envDefault:"true"`
	NotificationGroupID  string   `env:"NOTIFICATION_GROUP_ID" envDefault:"roorq-notifications"`

	// Auth/session provider
	AuthMode        string `env:"AUTH_MODE" envDefault:"jwt"`
	AuthJWTSecret   string `env:"AUTH_JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	AuthJWTIssuer   string `env:"AUTH_JWT_ISSUER"`
	AuthJWTAudience string `env:"AUTH_JWT_AUDIENCE" envDefault:"authenticated"`
	AuthURL         string `env:"AUTH_URL"`
	AuthAPIKey      string `env:"AUTH_API_KEY"`

	// Cookies
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"false"`

	// Object storage
	StorageBackend   string        `env:"STORAGE_BACKEND" envDefault:"memory"`
	MinioEndpoint    string        `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	MinioAccessKey   string        `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey   string        `env:"MINIO_SECRET_KEY"`
	MinioRegion      string        `env:"MINIO_REGION" envDefault:"us-east-1"`
	MinioUseSSL      bool          `env:"MINIO_USE_SSL" envDefault:"false"`
	DocumentBucket   string        `env:"DOCUMENT_BUCKET" envDefault:"vendor-documents"`
	PresignTTL       time.Duration `env:"DOCUMENT_PRESIGN_TTL" envDefault:"15m"`
	MaxDocumentBytes int64         `env:"MAX_DOCUMENT_BYTES" envDefault:"5242880"`

	// Storefront economics
	DeliveryFee          int64   `env:"DELIVERY_FEE" envDefault:"0"`
	CommissionPercent    float64 `env:"COMMISSION_PERCENT" envDefault:"10"`
	PayoutMinAmount      int64   `env:"PAYOUT_MIN_AMOUNT" envDefault:"50000"`
	PayoutSchedule       string  `env:"PAYOUT_SCHEDULE" envDefault:"0 2 * * *"`
	PayoutJobEnabled     bool    `env:"PAYOUT_JOB_ENABLED" envDefault:"true"`
	ReferralRewardAmount int64   `env:"REFERRAL_REWARD_AMOUNT" envDefault:"5000"`

	// HTTP hardening
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	RateLimitRPS       float64       `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	PprofAllowedCIDRs  []string      `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`
	AuditTimeout       time.Duration `env:"AUDIT_TIMEOUT" envDefault:"2s"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELInsecure   bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.AuthMode {
	case AuthModeJWT:
		// In non-development environments, require an explicitly set, strong secret.
		if !c.IsDevelopment() {
			if c.AuthJWTSecret == defaultJWTSecret {
				return fmt.Errorf("AUTH_JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
			}
			if len(c.AuthJWTSecret) < 32 {
				return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters long, got %d", len(c.AuthJWTSecret))
			}
		}
	case AuthModeRemote:
		if c.AuthURL == "" {
			return fmt.Errorf("AUTH_URL is required when AUTH_MODE=%s", AuthModeRemote)
		}
	default:
		return fmt.Errorf("invalid AUTH_MODE %q, must be %s or %s", c.AuthMode, AuthModeJWT, AuthModeRemote)
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StorageMinio:
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when STORAGE_BACKEND=%s", StorageMinio)
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q, must be %s or %s", c.StorageBackend, StorageMemory, StorageMinio)
	}

	if c.CommissionPercent < 0 || c.CommissionPercent > 100 {
		return fmt.Errorf("COMMISSION_PERCENT must be between 0 and 100, got %v", c.CommissionPercent)
	}
	if c.PayoutMinAmount < 0 {
		return fmt.Errorf("PAYOUT_MIN_AMOUNT must not be negative, got %d", c.PayoutMinAmount)
	}
	if _, err := cron.ParseStandard(c.PayoutSchedule); err != nil {
		return fmt.Errorf("invalid PAYOUT_SCHEDULE %q: %w", c.PayoutSchedule, err)
	}
	if c.MaxDocumentBytes <= 0 {
		return fmt.Errorf("MAX_DOCUMENT_BYTES must be positive, got %d", c.MaxDocumentBytes)
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		URL:             c.DatabaseURL,
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: c.DBMaxConnLifetime,
		MaxConnIdleTime: c.DBMaxConnIdleTime,
	}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		URL:      c.RedisURL,
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Tracing returns the OpenTelemetry configuration.
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName:    c.ServiceName,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		Insecure:       c.OTELInsecure,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}
