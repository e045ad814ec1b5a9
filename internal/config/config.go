package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath       = "config.toml"
	DefaultHTTPAddr         = ":8080"
	DefaultPGHost           = "127.0.0.1"
	DefaultPGPort           = 5432
	DefaultPGUser           = "postgres"
	DefaultPGDatabase       = "finsplit"
	DefaultPGSSLMode        = "disable"
	DefaultChannelAPIURL    = "https://api.twilio.com"
	DefaultExtractorBaseURL = "https://api.openai.com/v1"
	DefaultExtractorModel   = "gpt-4o-mini"
	DefaultExtractorTimeout = 60
	DefaultDashboardBaseURL = "http://localhost:3000"
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Postgres  PostgresConfig  `toml:"postgres"`
	WhatsApp  WhatsAppConfig  `toml:"whatsapp"`
	Extractor ExtractorConfig `toml:"extractor"`
	Billing   BillingConfig   `toml:"billing"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr" validate:"required"`
}

type PostgresConfig struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"required"`
	User     string `toml:"user" validate:"required"`
	Password string `toml:"password"`
	Database string `toml:"database" validate:"required"`
	SSLMode  string `toml:"sslmode"`
}

// DSN returns the postgres connection string for pgx.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// WhatsAppConfig holds the Twilio-style channel credentials used for both the
// outbound send API and authenticated media downloads.
type WhatsAppConfig struct {
	AccountSID string `toml:"account_sid"`
	AuthToken  string `toml:"auth_token"`
	FromNumber string `toml:"from_number"`
	APIBaseURL string `toml:"api_base_url" validate:"required"`
}

type ExtractorConfig struct {
	BaseURL        string `toml:"base_url" validate:"required"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model" validate:"required"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gt=0"`
}

// BillingConfig carries the entitlement policy toggles. Both enforcement flags
// default to false: the pipeline logs and proceeds on a disabled channel or an
// exhausted credit balance.
type BillingConfig struct {
	EnforceChannelEnabled bool   `toml:"enforce_channel_enabled"`
	EnforceCredits        bool   `toml:"enforce_credits"`
	DashboardBaseURL      string `toml:"dashboard_base_url" validate:"required"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		WhatsApp: WhatsAppConfig{
			APIBaseURL: DefaultChannelAPIURL,
		},
		Extractor: ExtractorConfig{
			BaseURL:        DefaultExtractorBaseURL,
			Model:          DefaultExtractorModel,
			TimeoutSeconds: DefaultExtractorTimeout,
		},
		Billing: BillingConfig{
			DashboardBaseURL: DefaultDashboardBaseURL,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
