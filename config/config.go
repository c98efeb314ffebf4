package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Crypto         CryptoConfig         `mapstructure:"crypto"`
	Ledger         LedgerConfig         `mapstructure:"ledger"`
	Commission     CommissionConfig     `mapstructure:"commission"`
	Orders         OrdersConfig         `mapstructure:"orders"`
	Gateway        GatewayConfig        `mapstructure:"gateway"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Notifier       NotifierConfig       `mapstructure:"notifier"`
	Log            LogConfig            `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig configures validation of service-to-service bearer tokens.
// Tokens are issued by the platform identity service; this core only
// validates them.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// CryptoConfig holds the master secret from which the AES phone-number
// encryption key and per-provider webhook secrets are derived via HKDF.
type CryptoConfig struct {
	MasterKey string `mapstructure:"master_key"` // hex-encoded, at least 32 bytes
}

// LedgerConfig bounds the internal recompute-and-retry loop around
// optimistic concurrency conflicts.
type LedgerConfig struct {
	Currency         string `mapstructure:"currency"`          // single minor-unit currency, e.g. UGX
	MaxApplyAttempts int    `mapstructure:"max_apply_attempts"`
}

type CommissionConfig struct {
	RuleCacheTTL time.Duration `mapstructure:"rule_cache_ttl"`
}

type OrdersConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProviderConfig configures one mobile-money provider adapter.
type ProviderConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	AttemptCap  int           `mapstructure:"attempt_cap"`  // initiation retries before FAILED
	BackoffBase time.Duration `mapstructure:"backoff_base"` // exponential backoff base
}

type GatewayConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

type ReconciliationConfig struct {
	Interval    time.Duration `mapstructure:"interval"`     // polling cadence
	GracePeriod time.Duration `mapstructure:"grace_period"` // min age before polling
	MaxAge      time.Duration `mapstructure:"max_age"`      // auto-fail deadline for external txns
	TimeWindow  time.Duration `mapstructure:"time_window"`  // confirmed-at tolerance when matching
	BatchSize   int           `mapstructure:"batch_size"`
}

type NotifierConfig struct {
	SinkURL string        `mapstructure:"sink_url"` // empty = notifications disabled
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: WL_ (Wallet Ledger).
// Nested keys use underscore: WL_DATABASE_HOST, WL_AUTH_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "wallet_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrate_on_start", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "platform-identity")
	v.SetDefault("crypto.master_key", "")
	v.SetDefault("ledger.currency", "UGX")
	v.SetDefault("ledger.max_apply_attempts", 3)
	v.SetDefault("commission.rule_cache_ttl", "5m")
	v.SetDefault("orders.base_url", "http://localhost:8081")
	v.SetDefault("orders.timeout", "5s")
	v.SetDefault("reconciliation.interval", "30s")
	v.SetDefault("reconciliation.grace_period", "2m")
	v.SetDefault("reconciliation.max_age", "24h")
	v.SetDefault("reconciliation.time_window", "48h")
	v.SetDefault("reconciliation.batch_size", 100)
	v.SetDefault("notifier.sink_url", "")
	v.SetDefault("notifier.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: WL_DATABASE_HOST -> database.host
	v.SetEnvPrefix("WL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
