package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Notification NotificationConfig `mapstructure:"notification"`
	Lark         LarkConfig         `mapstructure:"lark"`
	SendGrid     SendGridConfig     `mapstructure:"sendgrid"`
	Voucher      VoucherConfig      `mapstructure:"voucher"`
	Invite       InviteConfig       `mapstructure:"invite"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// AuthConfig holds bearer token configuration
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	BaseDir       string        `mapstructure:"base_dir"`
	SigningSecret string        `mapstructure:"signing_secret"`
	FilesBaseURL  string        `mapstructure:"files_base_url"`
	SignedURLTTL  time.Duration `mapstructure:"signed_url_ttl"`
}

// NotificationConfig holds notification delivery configuration
type NotificationConfig struct {
	Channels    []string `mapstructure:"channels"`
	AppURL      string   `mapstructure:"app_url"`
	MaxAttempts int      `mapstructure:"max_attempts"`
	RetryBatch  int      `mapstructure:"retry_batch"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

// SendGridConfig holds email configuration
type SendGridConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
	Host      string `mapstructure:"host"`
}

// VoucherConfig holds voucher rendering configuration
type VoucherConfig struct {
	Currency string `mapstructure:"currency"`
}

// InviteConfig holds invite configuration
type InviteConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// WorkerConfig holds maintenance job schedules
type WorkerConfig struct {
	RetryNotificationsSchedule string        `mapstructure:"retry_notifications_schedule"`
	ExpireInviteLinksSchedule  string        `mapstructure:"expire_invite_links_schedule"`
	JobTimeout                 time.Duration `mapstructure:"job_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from an optional .env file, the config file and
// environment variables. An empty configPath uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("EXPENSES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/expenses.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Storage defaults
	v.SetDefault("storage.base_dir", "data/files")
	v.SetDefault("storage.files_base_url", "http://localhost:8080/files")
	v.SetDefault("storage.signed_url_ttl", 15*time.Minute)

	// Notification defaults
	v.SetDefault("notification.channels", []string{"log"})
	v.SetDefault("notification.app_url", "http://localhost:8080")
	v.SetDefault("notification.max_attempts", 5)
	v.SetDefault("notification.retry_batch", 50)

	v.SetDefault("sendgrid.from_name", "Expenses")
	v.SetDefault("sendgrid.host", "https://api.sendgrid.com")

	v.SetDefault("voucher.currency", "INR")
	v.SetDefault("invite.ttl", 7*24*time.Hour)

	// Worker defaults (cron with seconds, UTC)
	v.SetDefault("worker.retry_notifications_schedule", "0 */5 * * * *")
	v.SetDefault("worker.expire_invite_links_schedule", "0 0 * * * *")
	v.SetDefault("worker.job_timeout", time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("storage.signing_secret", "FILE_SIGNING_SECRET")
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("sendgrid.api_key", "SENDGRID_API_KEY")
	_ = v.BindEnv("sendgrid.from_email", "SENDGRID_FROM_EMAIL")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	for _, ch := range c.Notification.Channels {
		switch ch {
		case "email":
			if c.SendGrid.APIKey == "" {
				return fmt.Errorf("sendgrid.api_key is required when the email channel is enabled")
			}
		case "lark":
			if c.Lark.AppID == "" || c.Lark.AppSecret == "" {
				return fmt.Errorf("lark.app_id and lark.app_secret are required when the lark channel is enabled")
			}
		case "log":
		default:
			return fmt.Errorf("unknown notification channel %q", ch)
		}
	}

	return nil
}
