// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the mail bridge.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultMaxMessageSize is 25 MB in bytes.
const defaultMaxMessageSize = 26214400

// Duration is a time.Duration that unmarshals from YAML strings like
// "10s" or "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the complete application configuration.
type Config struct {
	SMTP     SMTPConfig     `yaml:"smtp"`
	Mail     MailConfig     `yaml:"mail"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Outbound OutboundConfig `yaml:"outbound"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SMTPConfig holds inbound SMTP listener configuration.
type SMTPConfig struct {
	Listen         string `yaml:"listen"`
	MaxMessageSize int64  `yaml:"max_message_size"`
	MaxRecipients  int    `yaml:"max_recipients"`
}

// MailConfig holds the identity of the local mail platform.
type MailConfig struct {
	// Domain is the domain this bridge accepts mail for (e.g. "example.com").
	Domain string `yaml:"domain"`

	// Hostname is announced in EHLO/HELO on outbound connections.
	// Defaults to "mail." + Domain.
	Hostname string `yaml:"hostname"`
}

// StorageConfig holds attachment storage configuration.
type StorageConfig struct {
	AttachmentsDir string `yaml:"attachments_dir"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the
// mailbox directory.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// OutboundConfig holds timeouts for direct-to-MX delivery.
type OutboundConfig struct {
	ConnectTimeout  Duration `yaml:"connect_timeout"`
	GreetingTimeout Duration `yaml:"greeting_timeout"`
	SocketTimeout   Duration `yaml:"socket_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	cfg.applyDerived()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()
	cfg.applyDerived()

	return cfg, nil
}

// DSN returns the PostgreSQL connection string for the configured database.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.SMTP.Listen = ":25"
	c.SMTP.MaxMessageSize = defaultMaxMessageSize
	c.SMTP.MaxRecipients = 10
	c.Storage.AttachmentsDir = "data/attachments"
	c.Database.Host = "localhost"
	c.Database.Port = 5432
	c.Database.SSLMode = "disable"
	c.Outbound.ConnectTimeout = Duration(10 * time.Second)
	c.Outbound.GreetingTimeout = Duration(5 * time.Second)
	c.Outbound.SocketTimeout = Duration(10 * time.Second)
	c.Logging.Level = "info"
}

// applyDerived fills fields whose defaults depend on other fields.
func (c *Config) applyDerived() {
	if c.Mail.Hostname == "" && c.Mail.Domain != "" {
		c.Mail.Hostname = "mail." + c.Mail.Domain
	}
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("SMTP_LISTEN"); v != "" {
		c.SMTP.Listen = v
	}
	if v := os.Getenv("SMTP_MAX_MESSAGE_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.SMTP.MaxMessageSize = size
		}
	}
	if v := os.Getenv("SMTP_MAX_RECIPIENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SMTP.MaxRecipients = n
		}
	}

	if v := os.Getenv("MAIL_DOMAIN"); v != "" {
		c.Mail.Domain = v
	}
	if v := os.Getenv("MAIL_HOSTNAME"); v != "" {
		c.Mail.Hostname = v
	}

	if v := os.Getenv("ATTACHMENTS_DIR"); v != "" {
		c.Storage.AttachmentsDir = v
	}

	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv("DB_SSL_MODE"); v != "" {
		c.Database.SSLMode = v
	}

	if v := os.Getenv("OUTBOUND_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Outbound.ConnectTimeout = Duration(d)
		}
	}
	if v := os.Getenv("OUTBOUND_GREETING_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Outbound.GreetingTimeout = Duration(d)
		}
	}
	if v := os.Getenv("OUTBOUND_SOCKET_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Outbound.SocketTimeout = Duration(d)
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
