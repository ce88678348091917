package app

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "BALLOT"

// Config is layered: defaults, then the optional YAML file, then environment variables.
// Each variable is read as BALLOT_<NAME> first and falls back to <NAME>.
type Config struct {
	Port        string `yaml:"port" envconfig:"PORT"`
	LogMode     string `yaml:"logMode" envconfig:"LOG_MODE"`
	Environment string `yaml:"environment" envconfig:"ENVIRONMENT"`
	Version     string `yaml:"version" envconfig:"VERSION"`

	PostgresDSN      string `yaml:"postgresDSN" envconfig:"POSTGRES_DSN"`
	PostgresHost     string `yaml:"postgresHost" envconfig:"POSTGRES_HOST"`
	PostgresPort     string `yaml:"postgresPort" envconfig:"POSTGRES_PORT"`
	PostgresUser     string `yaml:"postgresUser" envconfig:"POSTGRES_USER"`
	PostgresPassword string `yaml:"postgresPassword" envconfig:"POSTGRES_PASSWORD"`
	PostgresName     string `yaml:"postgresName" envconfig:"POSTGRES_NAME"`
	PostgresSSLMode  string `yaml:"postgresSSLMode" envconfig:"POSTGRES_SSLMODE"`
	DBMaxOpenConns   int    `yaml:"dbMaxOpenConns" envconfig:"DB_MAX_OPEN_CONNS"`
	AutoMigrate      bool   `yaml:"autoMigrate" envconfig:"AUTO_MIGRATE"`

	ResolverSchedule    string        `yaml:"resolverSchedule" envconfig:"RESOLVER_SCHEDULE"`
	ResolverOnStart     bool          `yaml:"resolverOnStart" envconfig:"RESOLVER_ON_START"`
	ResolverConcurrency int           `yaml:"resolverConcurrency" envconfig:"RESOLVER_CONCURRENCY"`
	StoreTimeout        time.Duration `yaml:"storeTimeout" envconfig:"STORE_TIMEOUT"`

	RedisAddr       string        `yaml:"redisAddr" envconfig:"REDIS_ADDR"`
	RedisPassword   string        `yaml:"redisPassword" envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `yaml:"redisDB" envconfig:"REDIS_DB"`
	ResolverLockKey string        `yaml:"resolverLockKey" envconfig:"RESOLVER_LOCK_KEY"`
	ResolverLockTTL time.Duration `yaml:"resolverLockTTL" envconfig:"RESOLVER_LOCK_TTL"`

	AdminAPIKeys     []string `yaml:"adminAPIKeys" envconfig:"ADMIN_API_KEYS"`
	AdminJWTSecret   string   `yaml:"adminJWTSecret" envconfig:"ADMIN_JWT_SECRET"`
	ElectionTimezone string   `yaml:"electionTimezone" envconfig:"ELECTION_TIMEZONE"`
	CORSOrigins      []string `yaml:"corsOrigins" envconfig:"CORS_ORIGINS"`

	MetricsEnabled      bool          `yaml:"metricsEnabled" envconfig:"METRICS_ENABLED"`
	CaseMetricsInterval time.Duration `yaml:"caseMetricsInterval" envconfig:"CASE_METRICS_INTERVAL"`
	OtelEnabled         bool          `yaml:"otelEnabled" envconfig:"OTEL_ENABLED"`
	OtelEndpoint        string        `yaml:"otelEndpoint" envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelSampleRatio     float64       `yaml:"otelSampleRatio" envconfig:"OTEL_SAMPLE_RATIO"`

	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

func DefaultConfig() Config {
	return Config{
		Port:                "8080",
		LogMode:             "development",
		Environment:         "development",
		PostgresPort:        "5432",
		PostgresSSLMode:     "disable",
		DBMaxOpenConns:      20,
		AutoMigrate:         true,
		ResolverSchedule:    "@every 5m",
		ResolverConcurrency: 4,
		StoreTimeout:        10 * time.Second,
		ResolverLockKey:     "ballot:resolver:lock",
		ResolverLockTTL:     10 * time.Minute,
		ElectionTimezone:    "America/La_Paz",
		MetricsEnabled:      true,
		CaseMetricsInterval: time.Minute,
		OtelSampleRatio:     1,
		ShutdownTimeout:     30 * time.Second,
	}
}

// LoadConfig builds the effective configuration. configFile may be empty; CONFIG_FILE is
// consulted in that case.
func LoadConfig(configFile string) (Config, error) {
	cfg := DefaultConfig()

	if configFile == "" {
		configFile = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return cfg, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("port is required")
	}
	if c.ResolverConcurrency < 1 {
		return fmt.Errorf("resolver concurrency must be at least 1, got %d", c.ResolverConcurrency)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store timeout must be positive")
	}
	if _, err := time.LoadLocation(c.ElectionTimezone); err != nil {
		return fmt.Errorf("election timezone %q: %w", c.ElectionTimezone, err)
	}
	if c.OtelSampleRatio < 0 || c.OtelSampleRatio > 1 {
		return fmt.Errorf("otel sample ratio must be within [0, 1]")
	}
	return nil
}

// DSN returns PostgresDSN or assembles one from the discrete connection fields.
func (c Config) DSN() string {
	if dsn := strings.TrimSpace(c.PostgresDSN); dsn != "" {
		return dsn
	}
	if strings.TrimSpace(c.PostgresHost) == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:   c.PostgresHost + ":" + c.PostgresPort,
		Path:   "/" + c.PostgresName,
	}
	q := u.Query()
	q.Set("sslmode", c.PostgresSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Address is the listen address for Port.
func (c Config) Address() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

type configContextKey struct{}

func WithContext(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configContextKey{}, cfg)
}

func FromContext(ctx context.Context) (Config, bool) {
	if ctx == nil {
		return Config{}, false
	}
	cfg, ok := ctx.Value(configContextKey{}).(Config)
	return cfg, ok
}
