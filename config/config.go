package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Exchange provider identities accepted in exchange.provider.
const (
	ProviderFixer       = "fixer"
	ProviderCurrencyAPI = "currencyapi"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Payout     PayoutConfig     `mapstructure:"payout"`
	Exchange   ExchangeConfig   `mapstructure:"exchange"`
	Track      TrackConfig      `mapstructure:"track"`
	Management ManagementConfig `mapstructure:"management"`
	Email      EmailConfig      `mapstructure:"email"`
	Branding   BrandingConfig   `mapstructure:"branding"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
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
	Migrate         bool          `mapstructure:"migrate"`
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

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// PayoutConfig holds the program-wide settlement currency.
type PayoutConfig struct {
	Currency string `mapstructure:"currency"`
}

// ExchangeConfig selects one rate provider and the refresh cadence.
type ExchangeConfig struct {
	Provider     string            `mapstructure:"provider"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	PollInterval time.Duration     `mapstructure:"poll_interval"`
	RetryDelay   time.Duration     `mapstructure:"retry_delay"`
	RetryLimit   int               `mapstructure:"retry_limit"`
	Fixer        FixerConfig       `mapstructure:"fixer"`
	CurrencyAPI  CurrencyAPIConfig `mapstructure:"currency_api"`
}

type FixerConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

type CurrencyAPIConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type TrackConfig struct {
	Token     string `mapstructure:"token"`
	RateLimit int64  `mapstructure:"rate_limit"` // requests per minute per client, 0 disables
}

// ManagementConfig guards the operator endpoints. An empty token leaves them unmounted.
type ManagementConfig struct {
	Token string `mapstructure:"token"`
}

type EmailConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	From         string        `mapstructure:"from"`
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	SMTPUsername string        `mapstructure:"smtp_username"`
	SMTPPassword string        `mapstructure:"smtp_password"`
	SMTPEncrypt  bool          `mapstructure:"smtp_encrypt"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type BrandingConfig struct {
	PageTitle string `mapstructure:"page_title"`
	PageURL   string `mapstructure:"page_url"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: AFL_.
// Nested keys use underscore: AFL_PAYOUT_CURRENCY, AFL_EXCHANGE_FIXER_API_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("AFL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Payout.Currency = strings.ToUpper(strings.TrimSpace(cfg.Payout.Currency))
	cfg.Exchange.Provider = strings.ToLower(strings.TrimSpace(cfg.Exchange.Provider))

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "affiliates")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrate", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("payout.currency", "EUR")
	v.SetDefault("exchange.provider", ProviderCurrencyAPI)
	v.SetDefault("exchange.timeout", "20s")
	v.SetDefault("exchange.poll_interval", "72h")
	v.SetDefault("exchange.retry_delay", "60s")
	v.SetDefault("exchange.retry_limit", 2)
	v.SetDefault("exchange.fixer.endpoint", "https://api.apilayer.com/fixer")
	v.SetDefault("exchange.fixer.api_key", "")
	v.SetDefault("exchange.currency_api.endpoint", "https://latest.currency-api.pages.dev/v1/")
	v.SetDefault("track.token", "")
	v.SetDefault("track.rate_limit", 600)
	v.SetDefault("management.token", "")
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.from", "")
	v.SetDefault("email.smtp_host", "localhost")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.smtp_encrypt", true)
	v.SetDefault("email.timeout", "5s")
	v.SetDefault("branding.page_title", "Affiliates")
	v.SetDefault("branding.page_url", "")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "affiliate.events")
}

// Validate checks the invariants the engine relies on at startup.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Payout.Currency) != 3 {
		errs = append(errs, fmt.Errorf("payout.currency must be a 3-letter code, got %q", c.Payout.Currency))
	}

	switch c.Exchange.Provider {
	case ProviderFixer:
		if c.Exchange.Fixer.Endpoint == "" || c.Exchange.Fixer.APIKey == "" {
			errs = append(errs, errors.New("exchange.fixer requires endpoint and api_key"))
		}
	case ProviderCurrencyAPI:
		if c.Exchange.CurrencyAPI.Endpoint == "" {
			errs = append(errs, errors.New("exchange.currency_api requires endpoint"))
		}
	default:
		errs = append(errs, fmt.Errorf("exchange.provider must be %q or %q, got %q",
			ProviderFixer, ProviderCurrencyAPI, c.Exchange.Provider))
	}

	if c.Exchange.RetryLimit < 0 {
		errs = append(errs, errors.New("exchange.retry_limit must not be negative"))
	}
	if c.Exchange.PollInterval <= 0 {
		errs = append(errs, errors.New("exchange.poll_interval must be positive"))
	}
	if c.Track.Token == "" {
		errs = append(errs, errors.New("track.token is required"))
	}
	if c.Management.Token != "" && c.Management.Token == c.Track.Token {
		errs = append(errs, errors.New("management.token must differ from track.token"))
	}
	if c.Email.Enabled && c.Email.From == "" {
		errs = append(errs, errors.New("email.from is required when email is enabled"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}

	return errors.Join(errs...)
}
