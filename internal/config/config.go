package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Fund     FundConfig     `mapstructure:"fund"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// FundConfig identifies the monitored ETF and its reference data
type FundConfig struct {
	Name        string  `mapstructure:"name"`
	Symbol      string  `mapstructure:"symbol"`
	FXSymbol    string  `mapstructure:"fx_symbol"`
	SchemeCode  string  `mapstructure:"scheme_code"`
	FallbackNAV float64 `mapstructure:"fallback_nav"`
}

// SourcesConfig holds market-data endpoint configuration
type SourcesConfig struct {
	NavURL            string        `mapstructure:"nav_url"`
	NavDelimiter      string        `mapstructure:"nav_delimiter"`
	ChartURL          string        `mapstructure:"chart_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

// MonitorConfig holds polling loop timing
type MonitorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	ClosedChunk  time.Duration `mapstructure:"closed_chunk"`
}

// TwilioConfig holds WhatsApp and voice call credentials
type TwilioConfig struct {
	AccountSID   string `mapstructure:"account_sid"`
	AuthToken    string `mapstructure:"auth_token"`
	PhoneNo      string `mapstructure:"phone_no"`
	FromWhatsApp string `mapstructure:"from_whatsapp"`
	ToPhone      string `mapstructure:"to_phone"`
	Enabled      bool   `mapstructure:"enabled"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds journal configuration
type StorageConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DBPath     string `mapstructure:"db_path"`
	MaxSamples int    `mapstructure:"max_samples"`
}

// ServerConfig holds the health and metrics listener configuration
type ServerConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	ListenAddr string        `mapstructure:"listen_addr"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file, a .env file and environment variables.
// An empty path means environment-only configuration.
func Load(path string) (*Config, error) {
	// Missing .env is the normal case in production
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PREMIUMWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// bindLegacyEnv maps the unprefixed Twilio variable names used by existing deployments.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"twilio.account_sid":   "TWILIO_SID",
		"twilio.auth_token":    "TWILIO_AUTH_TOKEN",
		"twilio.phone_no":      "TWILIO_PHONE_NO",
		"twilio.from_whatsapp": "FROM_WHATSAPP",
		"twilio.to_phone":      "TO_PHONE",
	}
	for key, legacy := range bindings {
		prefixed := "PREMIUMWATCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return err
		}
	}
	return nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Fund defaults
	v.SetDefault("fund.name", "NASDAQ")
	v.SetDefault("fund.symbol", "MON100.NS")
	v.SetDefault("fund.fx_symbol", "USDINR=X")
	v.SetDefault("fund.scheme_code", "114984")
	v.SetDefault("fund.fallback_nav", 223.52)

	// Source defaults
	v.SetDefault("sources.nav_url", "https://portal.amfiindia.com/spages/NAVAll.txt")
	v.SetDefault("sources.nav_delimiter", ";")
	v.SetDefault("sources.chart_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("sources.user_agent", "Mozilla/5.0")
	v.SetDefault("sources.timeout", "10s")
	v.SetDefault("sources.requests_per_second", 2.0)
	v.SetDefault("sources.breaker_failures", 3)
	v.SetDefault("sources.breaker_timeout", "5m")

	// Monitor defaults
	v.SetDefault("monitor.poll_interval", "10m")
	v.SetDefault("monitor.cooldown", "1h")
	v.SetDefault("monitor.closed_chunk", "30m")

	// Twilio defaults
	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.phone_no", "")
	v.SetDefault("twilio.from_whatsapp", "")
	v.SetDefault("twilio.to_phone", "")
	v.SetDefault("twilio.enabled", true)

	// Telegram defaults
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.max_samples", 5000)

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.listen_addr", ":9090")
	v.SetDefault("server.stale_after", "90m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// ValidateCore checks the settings needed to fetch and evaluate a quote.
func (c *Config) ValidateCore() error {
	if c.Fund.Symbol == "" {
		return fmt.Errorf("fund.symbol is required")
	}
	if c.Fund.FXSymbol == "" {
		return fmt.Errorf("fund.fx_symbol is required")
	}
	if c.Fund.SchemeCode == "" {
		return fmt.Errorf("fund.scheme_code is required")
	}
	if c.Fund.FallbackNAV <= 0 {
		return fmt.Errorf("fund.fallback_nav must be positive")
	}

	if c.Sources.NavURL == "" {
		return fmt.Errorf("sources.nav_url is required")
	}
	if c.Sources.ChartURL == "" {
		return fmt.Errorf("sources.chart_url is required")
	}
	if len(c.Sources.NavDelimiter) != 1 {
		return fmt.Errorf("sources.nav_delimiter must be a single character")
	}
	if c.Sources.Timeout <= 0 {
		return fmt.Errorf("sources.timeout must be positive")
	}
	if c.Sources.RequestsPerSecond <= 0 {
		return fmt.Errorf("sources.requests_per_second must be positive")
	}
	if c.Sources.BreakerFailures < 1 {
		return fmt.Errorf("sources.breaker_failures must be at least 1")
	}

	if c.Monitor.PollInterval < 1*time.Minute {
		return fmt.Errorf("monitor.poll_interval must be at least 1 minute")
	}
	if c.Monitor.Cooldown < c.Monitor.PollInterval {
		return fmt.Errorf("monitor.cooldown must not be shorter than monitor.poll_interval")
	}
	if c.Monitor.ClosedChunk < 1*time.Minute {
		return fmt.Errorf("monitor.closed_chunk must be at least 1 minute")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if err := c.ValidateCore(); err != nil {
		return err
	}

	if c.Twilio.Enabled {
		if c.Twilio.AccountSID == "" {
			return fmt.Errorf("twilio.account_sid (TWILIO_SID) is required when twilio is enabled")
		}
		if c.Twilio.AuthToken == "" {
			return fmt.Errorf("twilio.auth_token (TWILIO_AUTH_TOKEN) is required when twilio is enabled")
		}
		if c.Twilio.ToPhone == "" {
			return fmt.Errorf("twilio.to_phone (TO_PHONE) is required when twilio is enabled")
		}
		if c.Twilio.FromWhatsApp == "" && c.Twilio.PhoneNo == "" {
			return fmt.Errorf("at least one of twilio.from_whatsapp or twilio.phone_no is required")
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if !c.Twilio.Enabled && !c.Telegram.Enabled {
		return fmt.Errorf("at least one notification channel (twilio or telegram) must be enabled")
	}

	if c.Storage.Enabled && c.Storage.MaxSamples < 1 {
		return fmt.Errorf("storage.max_samples must be at least 1")
	}

	if c.Server.Enabled {
		if c.Server.ListenAddr == "" {
			return fmt.Errorf("server.listen_addr is required when server is enabled")
		}
		if c.Server.StaleAfter <= c.Monitor.Cooldown {
			return fmt.Errorf("server.stale_after must exceed monitor.cooldown")
		}
	}

	return nil
}
