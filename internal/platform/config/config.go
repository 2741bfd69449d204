package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Refresh token store backends accepted by REFRESH_STORE_BACKEND
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	Server struct {
		Port            string        `envconfig:"SERVER_PORT" default:"3333"`
		ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
		WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
		IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
		CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
	}
	Log struct {
		Level     string `envconfig:"LOG_LEVEL" default:"info"`
		Format    string `envconfig:"LOG_FORMAT" default:"json"`
		AddSource bool   `envconfig:"LOG_ADD_SOURCE" default:"false"`
	}
	Postgres struct {
		MaxConns          int32         `envconfig:"PGX_MAX_CONNS" default:"20"`
		MinConns          int32         `envconfig:"PGX_MIN_CONNS" default:"5"`
		MaxConnLifetime   time.Duration `envconfig:"PGX_MAX_CONN_LIFETIME" default:"30m"`
		MaxConnIdleTime   time.Duration `envconfig:"PGX_MAX_CONN_IDLE_TIME" default:"5m"`
		HealthCheckPeriod time.Duration `envconfig:"PGX_HEALTH_CHECK_PERIOD" default:"1m"`
		ConnectTimeout    time.Duration `envconfig:"PGX_CONNECT_TIMEOUT" default:"5s"`
	}
	Database struct {
		Host     string `envconfig:"DB_HOST" required:"true"`
		Port     int    `envconfig:"DB_PORT" required:"true"`
		User     string `envconfig:"DB_USER" required:"true"`
		Password string `envconfig:"DB_PASSWORD" required:"true"`
		Name     string `envconfig:"DB_NAME" required:"true"`
		SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	}
	Auth struct {
		Secret             string        `envconfig:"JWT_SECRET" required:"true"`
		Algorithm          string        `envconfig:"JWT_ALGORITHM" default:"HS256"`
		AccessTokenMinutes int           `envconfig:"ACCESS_TOKEN_EXPIRE_MINUTES" default:"30"`
		RefreshTokenTTL    time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`
		PasswordPepper     string        `envconfig:"PASSWORD_PEPPER" default:""`
		RefreshBackend     string        `envconfig:"REFRESH_STORE_BACKEND" default:"memory"`
		// sweeps the in-memory denylist and refresh store
		PruneInterval      time.Duration `envconfig:"REVOCATION_PRUNE_INTERVAL" default:"5m"`
	}
	Cookie struct {
		Secure bool   `envconfig:"COOKIE_SECURE" default:"false"`
		Domain string `envconfig:"COOKIE_DOMAIN" default:"localhost"`
	}
	Redis struct {
		Host     string        `envconfig:"REDIS_URL" default:"localhost"`
		Port     int           `envconfig:"REDIS_PORT" default:"6379"`
		Password string        `envconfig:"REDIS_PASSWORD" default:""`
		DB       int           `envconfig:"REDIS_DB" default:"0"`
		CacheTTL time.Duration `envconfig:"REDIS_EX" default:"600s"`
	}
	DynamoDB struct {
		Endpoint  string `envconfig:"DYNAMODB_ENDPOINT" default:""`
		Region    string `envconfig:"DYNAMODB_REGION" default:"us-east-1"`
		TableName string `envconfig:"DYNAMODB_REFRESH_TABLE" default:"TradebookRefreshTokens"`
	}
	MarketData struct {
		BaseURL string        `envconfig:"MARKET_DATA_BASE_URL" default:"http://localhost:8081"`
		APIKey  string        `envconfig:"MARKET_DATA_API_KEY" default:""`
		Timeout time.Duration `envconfig:"MARKET_DATA_TIMEOUT" default:"10s"`
	}
}

// AccessTokenTTL returns the default lifetime of an access token
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Auth.AccessTokenMinutes) * time.Minute
}

func Load() (*Config, error) {
	// A missing .env is fine, the environment may already be populated (containers, CI)
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
		log.Printf("no .env file found, reading configuration from environment only")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config from environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✔️ Configuration loaded successfully")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Auth.RefreshBackend {
	case BackendMemory, BackendRedis, BackendDynamoDB:
	default:
		return fmt.Errorf("invalid REFRESH_STORE_BACKEND %q", c.Auth.RefreshBackend)
	}

	if c.Auth.Secret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}

	if c.Auth.AccessTokenMinutes <= 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}

	return nil
}
