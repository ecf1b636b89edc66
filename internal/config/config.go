package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// StoreDriverEnv is the environment variable selecting the product store backend.
	StoreDriverEnv = "STORE_DRIVER"

	// DBHostEnv is the environment variable for database host.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// HTTPServerPortEnv is the environment variable for HTTP server port.
	HTTPServerPortEnv = "HTTP_SERVER_PORT"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// DefaultExchangeRateEnv is the environment variable for the exchange rate
	// applied to products created without one.
	DefaultExchangeRateEnv = "DEFAULT_EXCHANGE_RATE"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// SQSQueueURLEnv is the environment variable for SQS queue URL.
	SQSQueueURLEnv = "SQS_QUEUE_URL"

	// OutboxIntervalEnv is the environment variable for the outbox polling interval.
	OutboxIntervalEnv = "OUTBOX_INTERVAL"

	// RedisAddrEnv is the environment variable for the barcode cache address.
	RedisAddrEnv = "REDIS_ADDR"

	// RedisPasswordEnv is the environment variable for the barcode cache password.
	RedisPasswordEnv = "REDIS_PASSWORD"

	// RedisDBEnv is the environment variable for the barcode cache database index.
	RedisDBEnv = "REDIS_DB"

	// CacheTTLEnv is the environment variable for the barcode cache TTL.
	CacheTTLEnv = "CACHE_TTL"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	defaultExchangeRate   = "89500"
	defaultOutboxInterval = 2 * time.Second
	defaultCacheTTL       = time.Minute
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")
)

// Config represents the application configuration.
type Config struct {
	DebugMode           bool
	StoreDriver         string
	DefaultExchangeRate decimal.Decimal
	Database            DB
	HTTPServer          Server
	MetricsServer       Server
	AWS                 AWSConfig
	Outbox              OutboxConfig
	Redis               RedisConfig
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region      string
	Endpoint    string
	SQSQueueURL string
}

// DB represents database configuration settings.
type DB struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
}

// Server represents server configuration settings.
type Server struct {
	Port string
}

// OutboxConfig represents the outbox worker settings.
type OutboxConfig struct {
	Interval time.Duration
}

// RedisConfig represents the barcode cache settings. The cache is disabled when Addr is empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		// Validate database configuration
		if err := allNonEmpty(map[string]string{
			DBHostEnv: c.Database.Host,
			DBUserEnv: c.Database.User,
			DBNameEnv: c.Database.Name,
		}); err != nil {
			return fmt.Errorf("database configuration incomplete: %w", err)
		}
		if err := allNumbers(map[string]string{
			DBPortEnv: c.Database.Port,
		}); err != nil {
			return fmt.Errorf("invalid port number: %w", err)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	// Validate server ports
	if err := allNonEmpty(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("server port configuration incomplete: %w", err)
	}

	// Validate port numbers
	if err := allNumbers(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	if err := model.ValidateExchangeRate(c.DefaultExchangeRate); err != nil {
		return fmt.Errorf("%s=%s: %w", DefaultExchangeRateEnv, c.DefaultExchangeRate, err)
	}

	return nil
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid number for key %s: %w", name, err)
	}
	return val, nil
}

func getEnvAsDuration(name string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for key %s: %w", name, err)
	}
	return val, nil
}

func getEnvAsDecimal(name string, defaultValue string) (decimal.Decimal, error) {
	raw := os.Getenv(name)
	if raw == "" {
		raw = defaultValue
	}
	val, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal for key %s: %w", name, err)
	}
	return val, nil
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	err := ApplyEnvFile(envPath)
	if err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}

	rate, err := getEnvAsDecimal(DefaultExchangeRateEnv, defaultExchangeRate)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	outboxInterval, err := getEnvAsDuration(OutboxIntervalEnv, defaultOutboxInterval)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	cacheTTL, err := getEnvAsDuration(CacheTTLEnv, defaultCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	redisDB, err := getEnvAsInt(RedisDBEnv, 0)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	conf := &Config{
		DebugMode:           getEnvAsBool(DebugModeEnv, false),
		StoreDriver:         getEnv(StoreDriverEnv, StoreDriverPostgres),
		DefaultExchangeRate: rate,
		Database: DB{
			Host:     os.Getenv(DBHostEnv),
			User:     os.Getenv(DBUserEnv),
			Password: os.Getenv(DBPassEnv),
			Name:     os.Getenv(DBNameEnv),
			Port:     os.Getenv(DBPortEnv),
		},
		HTTPServer: Server{
			Port: os.Getenv(HTTPServerPortEnv),
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		AWS: AWSConfig{
			Region:      os.Getenv(AWSRegionEnv),
			Endpoint:    os.Getenv(AWSEndpointEnv),
			SQSQueueURL: os.Getenv(SQSQueueURLEnv),
		},
		Outbox: OutboxConfig{
			Interval: outboxInterval,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv(RedisAddrEnv),
			Password: os.Getenv(RedisPasswordEnv),
			DB:       redisDB,
			TTL:      cacheTTL,
		},
	}

	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}
