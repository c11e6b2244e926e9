// Package config handles harness configuration: defaults, YAML file and
// environment overrides.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"kampyn-loadtest/internal/collector"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig          `yaml:"server"`
	Mongo      MongoConfig           `yaml:"mongo"`
	Test       TestConfig            `yaml:"test"`
	TestData   TestDataConfig        `yaml:"test_data"`
	Log        LogConfig             `yaml:"log"`
	Cleanup    CleanupConfig         `yaml:"cleanup"`
	Thresholds *collector.Thresholds `yaml:"thresholds,omitempty"`
}

// ServerConfig points at the system under test.
type ServerConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// MongoConfig locates the user and OTP collections.
type MongoConfig struct {
	URI             string `yaml:"uri"`
	AccountsDB      string `yaml:"accounts_db"`
	UsersCollection string `yaml:"users_collection"`
	OTPDB           string `yaml:"otp_db"`
	OTPCollection   string `yaml:"otp_collection"`
}

// TestConfig controls the shape of the run.
type TestConfig struct {
	Users       int `yaml:"users"`
	Concurrency int `yaml:"concurrency"`
	RPS         int `yaml:"rps"`

	// OTPWait is the settle delay before the first OTP read; the poll loop
	// then retries every OTPPollInterval until OTPPollTimeout expires. A zero
	// OTPPollTimeout degenerates to a single read after the settle delay.
	OTPWait         time.Duration `yaml:"otp_wait"`
	OTPPollInterval time.Duration `yaml:"otp_poll_interval"`
	OTPPollTimeout  time.Duration `yaml:"otp_poll_timeout"`
}

// TestDataConfig controls synthetic identity generation.
type TestDataConfig struct {
	EmailDomain string `yaml:"email_domain"`
	PhonePrefix string `yaml:"phone_prefix"`
	UniID       string `yaml:"uni_id"`
}

// LogConfig controls the run log.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// CleanupConfig controls test-data deletion after the run.
type CleanupConfig struct {
	// Pattern overrides the email regex derived from the test data settings.
	Pattern string `yaml:"pattern"`
}

// Default returns the configuration matching the bitesbay deployment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:        "https://bitesbay-backend.onrender.com",
			RequestTimeout: 30 * time.Second,
		},
		Mongo: MongoConfig{
			AccountsDB:      "Cluster_Accounts",
			UsersCollection: "users",
			OTPDB:           "Cluster_Users",
			OTPCollection:   "otps",
		},
		Test: TestConfig{
			Users:           2000,
			Concurrency:     100,
			OTPWait:         1 * time.Second,
			OTPPollInterval: 250 * time.Millisecond,
			OTPPollTimeout:  5 * time.Second,
		},
		TestData: TestDataConfig{
			EmailDomain: "test.com",
			PhonePrefix: "98765",
			UniID:       "68320fd75c6f79ec179ad3bb",
		},
		Log: LogConfig{
			Level: "info",
			File:  "load_test_auth.log",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file (if any), then
// environment variables. A .env file in the working directory is honored.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	_ = godotenv.Load() // missing .env is fine

	if v := os.Getenv("LOADTEST_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("LOADTEST_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	} else if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the settings a run cannot proceed without.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server base URL is required")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo URI is required")
	}
	if c.Test.Users < 1 {
		return fmt.Errorf("test users must be >= 1, got %d", c.Test.Users)
	}
	if c.Test.Concurrency < 1 {
		return fmt.Errorf("test concurrency must be >= 1, got %d", c.Test.Concurrency)
	}
	if c.Cleanup.Pattern != "" {
		if _, err := regexp.Compile(c.Cleanup.Pattern); err != nil {
			return fmt.Errorf("invalid cleanup pattern: %w", err)
		}
	}
	return nil
}

// EmailPattern returns the regex matching synthetic test emails, either the
// configured override or one derived from the email domain.
func (c *Config) EmailPattern() string {
	if c.Cleanup.Pattern != "" {
		return c.Cleanup.Pattern
	}
	return `^testuser\d+@` + regexp.QuoteMeta(c.TestData.EmailDomain) + `$`
}
