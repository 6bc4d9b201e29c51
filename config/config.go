package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Store       StoreConfig       `mapstructure:"store"`
	Payout      PayoutConfig      `mapstructure:"payout"`
	Collections CollectionsConfig `mapstructure:"collections"`
	Settlement  SettlementConfig  `mapstructure:"settlement"`
	Staff       StaffConfig       `mapstructure:"staff"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	AES         AESConfig         `mapstructure:"aes"`
	Log         LogConfig         `mapstructure:"log"`
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
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"` // dial, read and write
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StoreConfig bounds every call the lifecycles make to PostgreSQL or Redis.
type StoreConfig struct {
	CallTimeout        time.Duration `mapstructure:"call_timeout"`
	PaymentMethodTTL   time.Duration `mapstructure:"payment_method_ttl"`
	SettlementNonceTTL time.Duration `mapstructure:"settlement_nonce_ttl"`
}

// PayoutLimit is the inclusive amount window accepted for a payout currency.
type PayoutLimit struct {
	Min string `mapstructure:"min"`
	Max string `mapstructure:"max"`
}

type PayoutConfig struct {
	Limits map[string]PayoutLimit `mapstructure:"limits"`
}

// Bounds parses the configured limits for currency. ok is false when the
// currency has no configured limits or they are not valid decimals.
func (p PayoutConfig) Bounds(currency string) (min, max decimal.Decimal, ok bool) {
	limit, found := p.Limits[strings.ToLower(currency)]
	if !found {
		return decimal.Zero, decimal.Zero, false
	}
	min, err := decimal.NewFromString(limit.Min)
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	max, err = decimal.NewFromString(limit.Max)
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	return min, max, true
}

// CollectionsConfig describes the bank that issues merchant virtual accounts.
type CollectionsConfig struct {
	AccountNamePrefix string `mapstructure:"account_name_prefix"`
	BankCode          string `mapstructure:"bank_code"`
	BankName          string `mapstructure:"bank_name"`
}

// SettlementConfig holds the card processor's webhook credentials.
type SettlementConfig struct {
	ProcessorSecret string        `mapstructure:"processor_secret"`
	MaxClockDrift   time.Duration `mapstructure:"max_clock_drift"`
}

// StaffConfig holds the back-office operator account.
type StaffConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"` // encoded Argon2id hash
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CGW_ (Collection Gateway).
// Nested keys use underscore: CGW_DATABASE_HOST, CGW_STORE_CALL_TIMEOUT, etc.
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
	v.SetDefault("database.dbname", "collection_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.timeout", "2s")
	v.SetDefault("store.call_timeout", "5s")
	v.SetDefault("store.payment_method_ttl", "5m")
	v.SetDefault("store.settlement_nonce_ttl", "5m")
	v.SetDefault("payout.limits.ngn.min", "1000")
	v.SetDefault("payout.limits.ngn.max", "1000000")
	v.SetDefault("payout.limits.usd.min", "100")
	v.SetDefault("payout.limits.usd.max", "10000")
	v.SetDefault("collections.account_name_prefix", "Squadco")
	v.SetDefault("collections.bank_code", "058")
	v.SetDefault("collections.bank_name", "GTBank")
	v.SetDefault("settlement.processor_secret", "")
	v.SetDefault("settlement.max_clock_drift", "60s")
	v.SetDefault("staff.username", "admin")
	v.SetDefault("staff.password_hash", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "8h")
	v.SetDefault("jwt.issuer", "collection-gateway")
	v.SetDefault("aes.key", "")
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

	// Environment variables: CGW_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CGW")
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
