package config

import (
	"os"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Fund: FundConfig{
			Name:        "NASDAQ",
			Symbol:      "MON100.NS",
			FXSymbol:    "USDINR=X",
			SchemeCode:  "114984",
			FallbackNAV: 223.52,
		},
		Sources: SourcesConfig{
			NavURL:            "https://example.com/NAVAll.txt",
			NavDelimiter:      ";",
			ChartURL:          "https://example.com/chart",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 2,
			BreakerFailures:   3,
			BreakerTimeout:    5 * time.Minute,
		},
		Monitor: MonitorConfig{
			PollInterval: 10 * time.Minute,
			Cooldown:     time.Hour,
			ClosedChunk:  30 * time.Minute,
		},
		Twilio: TwilioConfig{
			AccountSID:   "AC123",
			AuthToken:    "secret",
			PhoneNo:      "+15550000000",
			FromWhatsApp: "whatsapp:+14155238886",
			ToPhone:      "+919800000000",
			Enabled:      true,
		},
		Storage: StorageConfig{Enabled: true, MaxSamples: 100},
		Server:  ServerConfig{Enabled: true, ListenAddr: ":9090", StaleAfter: 90 * time.Minute},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestLoadAndValidate(t *testing.T) {
	content := `
fund:
  scheme_code: "999999"
  fallback_nav: 100.5

monitor:
  poll_interval: 5m

twilio:
  account_sid: "AC123"
  auth_token: "secret"
  to_phone: "+919800000000"
  phone_no: "+15550000000"

logging:
  level: "debug"
  format: "json"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Monitor.PollInterval != 5*time.Minute {
		t.Errorf("Unexpected poll interval: %v", cfg.Monitor.PollInterval)
	}
	if cfg.Monitor.Cooldown != time.Hour {
		t.Errorf("Unexpected cooldown: %v", cfg.Monitor.Cooldown)
	}
	if cfg.Fund.SchemeCode != "999999" {
		t.Errorf("Unexpected scheme code: %s", cfg.Fund.SchemeCode)
	}
	if cfg.Fund.FallbackNAV != 100.5 {
		t.Errorf("Unexpected fallback NAV: %f", cfg.Fund.FallbackNAV)
	}
	if cfg.Fund.Symbol != "MON100.NS" {
		t.Errorf("Expected default symbol, got %s", cfg.Fund.Symbol)
	}
	if cfg.Sources.Timeout != 10*time.Second {
		t.Errorf("Expected default timeout, got %v", cfg.Sources.Timeout)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadEnvironmentOnly(t *testing.T) {
	t.Setenv("TWILIO_SID", "ACenv")
	t.Setenv("TWILIO_AUTH_TOKEN", "envtoken")
	t.Setenv("TO_PHONE", "+919811111111")
	t.Setenv("FROM_WHATSAPP", "whatsapp:+14155238886")
	t.Setenv("PREMIUMWATCH_MONITOR_POLL_INTERVAL", "2m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Twilio.AccountSID != "ACenv" {
		t.Errorf("Expected legacy TWILIO_SID to bind, got %q", cfg.Twilio.AccountSID)
	}
	if cfg.Twilio.ToPhone != "+919811111111" {
		t.Errorf("Expected legacy TO_PHONE to bind, got %q", cfg.Twilio.ToPhone)
	}
	if cfg.Monitor.PollInterval != 2*time.Minute {
		t.Errorf("Expected prefixed env override, got %v", cfg.Monitor.PollInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/premiumwatch.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing symbol", func(c *Config) { c.Fund.Symbol = "" }},
		{"non-positive fallback nav", func(c *Config) { c.Fund.FallbackNAV = 0 }},
		{"multi-char delimiter", func(c *Config) { c.Sources.NavDelimiter = "||" }},
		{"poll interval too short", func(c *Config) { c.Monitor.PollInterval = 30 * time.Second }},
		{"cooldown shorter than poll", func(c *Config) { c.Monitor.Cooldown = time.Minute }},
		{"missing twilio sid", func(c *Config) { c.Twilio.AccountSID = "" }},
		{"missing twilio senders", func(c *Config) {
			c.Twilio.FromWhatsApp = ""
			c.Twilio.PhoneNo = ""
		}},
		{"missing telegram token when enabled", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.ChatID = "123"
		}},
		{"no channels", func(c *Config) { c.Twilio.Enabled = false }},
		{"stale window within cooldown", func(c *Config) { c.Server.StaleAfter = 30 * time.Minute }},
		{"invalid log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() expected error for %s", tt.name)
			}
		})
	}
}

func TestValidateCoreIgnoresChannels(t *testing.T) {
	cfg := validConfig()
	cfg.Twilio = TwilioConfig{}
	if err := cfg.ValidateCore(); err != nil {
		t.Errorf("ValidateCore() unexpected error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error without notification channels")
	}
}
