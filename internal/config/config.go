package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	App          AppConfig          `yaml:"app"`
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	RabbitMQ     RabbitMQConfig     `yaml:"rabbitmq"`
	Redis        RedisConfig        `yaml:"redis"`
	Logging      LoggingConfig      `yaml:"logging"`
	Worker       WorkerConfig       `yaml:"worker"`
	Booking      BookingConfig      `yaml:"booking"`
	Notification NotificationConfig `yaml:"notification"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	ApplicationName string        `yaml:"application_name"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RabbitMQConfig holds the event bus connection and topology
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	BindingKey string           `yaml:"binding_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// RedisConfig holds the deferred push store connection
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
	DeferredKey  string        `yaml:"deferred_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableSource bool   `yaml:"enable_source"`
	NoColor      bool   `yaml:"no_color"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	EventTimeout    time.Duration `yaml:"event_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	PollBatchSize   int64         `yaml:"poll_batch_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BookingConfig holds the lifecycle rules
type BookingConfig struct {
	Timezone           string        `yaml:"timezone"`
	ImmediateLeadTime  time.Duration `yaml:"immediate_lead_time"`
	CancellationWindow time.Duration `yaml:"cancellation_window"`
}

// NotificationConfig holds the delivery channels and night-time window
type NotificationConfig struct {
	Timeout       time.Duration       `yaml:"timeout"`
	Concurrency   int                 `yaml:"concurrency"`
	BusinessHours BusinessHoursConfig `yaml:"business_hours"`
	Push          PushConfig          `yaml:"push"`
	SMS           SMSConfig           `yaml:"sms"`
	SMTP          SMTPConfig          `yaml:"smtp"`
}

// BusinessHoursConfig is the daytime window in the booking timezone
type BusinessHoursConfig struct {
	StartHour int `yaml:"start_hour"`
	EndHour   int `yaml:"end_hour"`
}

// PushConfig holds push provider settings
type PushConfig struct {
	BaseURL string        `yaml:"base_url"`
	AppID   string        `yaml:"app_id"`
	APIKey  string        `yaml:"api_key"`
	Title   string        `yaml:"title"`
	Timeout time.Duration `yaml:"timeout"`
}

// SMSConfig holds SMS gateway settings
type SMSConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SMTPConfig holds outgoing mail settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

// TelemetryConfig holds OpenTelemetry metrics settings
type TelemetryConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ExportInterval time.Duration `yaml:"export_interval"`
}

// Load reads and parses the configuration file. ${VAR} references are
// expanded from the environment before parsing.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Location resolves the booking timezone; empty means the host's local zone
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid booking timezone %q: %w", b.Timezone, err)
	}
	return loc, nil
}

func validPort(name string, port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("invalid %s port: %d (must be between %d and %d)", name, port, MinPort, MaxPort)
	}
	return nil
}

// Validate checks the settings shared by both services
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}
	if err := validPort("database", c.Database.Port); err != nil {
		return err
	}
	if c.Database.Database == "" {
		return errors.New("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return errors.New("rabbitmq host is required")
	}
	if err := validPort("rabbitmq", c.RabbitMQ.Port); err != nil {
		return err
	}
	if c.RabbitMQ.Exchange.Name == "" {
		return errors.New("rabbitmq exchange name is required")
	}

	if _, err := c.Booking.Location(); err != nil {
		return err
	}

	return nil
}

// ValidateAPIConfig checks the settings the API service needs
func (c *Config) ValidateAPIConfig() error {
	if err := validPort("server", c.Server.Port); err != nil {
		return err
	}
	if c.RabbitMQ.Exchange.Type != "" && c.RabbitMQ.Exchange.Type != "topic" {
		return fmt.Errorf("rabbitmq exchange type must be topic, got %q", c.RabbitMQ.Exchange.Type)
	}
	return c.Validate()
}

// ValidateWorkerConfig checks the settings the worker service needs
func (c *Config) ValidateWorkerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.RabbitMQ.Queue.Name == "" {
		return errors.New("rabbitmq queue name is required")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis addr is required")
	}

	if c.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be greater than 0")
	}
	if c.Worker.EventTimeout <= 0 {
		return errors.New("worker event_timeout must be greater than 0")
	}
	if c.Worker.PollInterval <= 0 {
		return errors.New("worker poll_interval must be greater than 0")
	}
	if c.Worker.ShutdownTimeout <= 0 {
		return errors.New("worker shutdown_timeout must be greater than 0")
	}

	hours := c.Notification.BusinessHours
	if hours.StartHour < 0 || hours.EndHour > 24 || hours.StartHour >= hours.EndHour {
		return fmt.Errorf("invalid business hours: %d-%d", hours.StartHour, hours.EndHour)
	}
	if c.Notification.SMTP.Host != "" {
		if err := validPort("smtp", c.Notification.SMTP.Port); err != nil {
			return err
		}
	}

	return nil
}
