// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for our application
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Inventory InventoryConfig
	Worker    WorkerConfig
	Tracing   TracingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"Marketplace Backend"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string        `envconfig:"APP_PORT" default:"8080"`
	ReadTimeout    time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout    time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	RequestTimeout time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"30s"`
	MaxBodyBytes   int64         `envconfig:"SERVER_MAX_BODY_BYTES" default:"1048576"`
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string        `envconfig:"DB_HOST" default:"localhost"`
	Port         string        `envconfig:"DB_PORT" default:"5432"`
	Name         string        `envconfig:"DB_NAME" default:"marketplace_db"`
	User         string        `envconfig:"DB_USER" default:"marketplace_user"`
	Password     string        `envconfig:"DB_PASSWORD" default:"marketplace_password"`
	SSLMode      string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	MaxLifetime  time.Duration `envconfig:"DB_MAX_LIFETIME" default:"300s"`
	AutoMigrate  bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string `envconfig:"REDIS_HOST" default:"localhost"`
	Port         string `envconfig:"REDIS_PORT" default:"6379"`
	Password     string `envconfig:"REDIS_PASSWORD"`
	DB           int    `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int    `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int    `envconfig:"REDIS_MIN_IDLE_CONNS" default:"5"`
}

// JWTConfig contains JWT token configuration
type JWTConfig struct {
	Secret            string        `envconfig:"JWT_SECRET" default:"your-super-secret-jwt-key-change-in-production"`
	AccessTokenExpiry time.Duration `envconfig:"JWT_ACCESS_EXPIRE" default:"24h"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"100"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:3001"`
	CORSAllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	CORSAllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Origin,Content-Type,Accept,Authorization,X-Request-ID"`
	TrustedProxies     []string `envconfig:"TRUSTED_PROXIES"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"debug"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// InventoryConfig tunes the reconciliation and stock mutation paths
type InventoryConfig struct {
	PageSize          int           `envconfig:"INVENTORY_PAGE_SIZE" default:"200"`
	ReconcileWorkers  int           `envconfig:"INVENTORY_RECONCILE_WORKERS" default:"4"`
	MaxAdjustment     int           `envconfig:"INVENTORY_MAX_ADJUSTMENT" default:"100000"`
	RetryAttempts     int           `envconfig:"INVENTORY_RETRY_ATTEMPTS" default:"5"`
	RetryBaseDelay    time.Duration `envconfig:"INVENTORY_RETRY_BASE_DELAY" default:"20ms"`
	RetryMaxDelay     time.Duration `envconfig:"INVENTORY_RETRY_MAX_DELAY" default:"500ms"`
	QueueKey          string        `envconfig:"INVENTORY_QUEUE_KEY" default:"inventory:tasks"`
	QueueDedupTTL     time.Duration `envconfig:"INVENTORY_QUEUE_DEDUP_TTL" default:"5m"`
	MovementListLimit int           `envconfig:"INVENTORY_MOVEMENT_LIST_LIMIT" default:"50"`
}

// WorkerConfig contains background worker configuration
type WorkerConfig struct {
	Interval         time.Duration `envconfig:"WORKER_INTERVAL" default:"15m"`
	LockKey          string        `envconfig:"WORKER_LOCK_KEY" default:"inventory:scheduler:lock"`
	LockTTL          time.Duration `envconfig:"WORKER_LOCK_TTL" default:"10m"`
	QueuePollWait    time.Duration `envconfig:"WORKER_QUEUE_POLL_WAIT" default:"5s"`
	MetricsPort      string        `envconfig:"WORKER_METRICS_PORT" default:"9091"`
	RepairOnSchedule bool          `envconfig:"WORKER_REPAIR_ON_SCHEDULE" default:"true"`
}

// TracingConfig contains OpenTelemetry exporter configuration
type TracingConfig struct {
	Endpoint    string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool    `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	SampleRatio float64 `envconfig:"OTEL_TRACES_SAMPLE_RATIO" default:"1"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	if c.Inventory.PageSize <= 0 {
		return fmt.Errorf("INVENTORY_PAGE_SIZE must be positive")
	}
	if c.Inventory.ReconcileWorkers <= 0 {
		return fmt.Errorf("INVENTORY_RECONCILE_WORKERS must be positive")
	}
	if c.Inventory.MaxAdjustment <= 0 {
		return fmt.Errorf("INVENTORY_MAX_ADJUSTMENT must be positive")
	}
	if c.Inventory.RetryAttempts <= 0 {
		return fmt.Errorf("INVENTORY_RETRY_ATTEMPTS must be positive")
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLE_RATIO must be between 0 and 1")
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
