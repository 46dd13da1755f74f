// Package container provides dependency injection and lifecycle management
// for the expense reimbursement service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database     DatabaseConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Notification NotificationConfig
	Lark         LarkConfig
	SendGrid     SendGridConfig
	Voucher      VoucherConfig
	Invite       InviteConfig
	Server       ServerConfig
	Worker       WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	// JWTSecret signs and verifies HS256 access tokens
	JWTSecret string

	// Issuer is required in tokens when set
	Issuer string
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// BaseDir is the root of the local object store
	BaseDir string

	// SigningSecret signs download URLs; falls back to the auth secret
	SigningSecret string

	// FilesBaseURL is the public prefix of the /files route
	FilesBaseURL string

	SignedURLTTL time.Duration
}

// NotificationConfig holds notification delivery settings.
type NotificationConfig struct {
	// Channels lists enabled notifiers: email, lark, log
	Channels []string

	// AppURL is linked from every message
	AppURL string

	MaxAttempts int
	RetryBatch  int
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	AppID     string
	AppSecret string

	// BaseURL overrides the open platform endpoint, e.g. for Feishu
	BaseURL string
}

// SendGridConfig holds email delivery settings.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	Host      string
}

// VoucherConfig holds voucher rendering settings.
type VoucherConfig struct {
	Currency string
}

// InviteConfig holds invite settings.
type InviteConfig struct {
	TTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WorkerConfig holds maintenance job schedules (cron with seconds, UTC).
type WorkerConfig struct {
	RetryNotificationsSchedule string
	ExpireInviteLinksSchedule  string
	JobTimeout                 time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/expenses.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			BaseDir:      "data/files",
			FilesBaseURL: "http://localhost:8080/files",
			SignedURLTTL: 15 * time.Minute,
		},
		Notification: NotificationConfig{
			Channels:    []string{entity.ChannelLog},
			AppURL:      "http://localhost:8080",
			MaxAttempts: 5,
			RetryBatch:  50,
		},
		SendGrid: SendGridConfig{
			FromName: "Expenses",
			Host:     "https://api.sendgrid.com",
		},
		Voucher: VoucherConfig{Currency: "INR"},
		Invite:  InviteConfig{TTL: 7 * 24 * time.Hour},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Worker: WorkerConfig{
			RetryNotificationsSchedule: "0 */5 * * * *",
			ExpireInviteLinksSchedule:  "0 0 * * * *",
			JobTimeout:                 time.Minute,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if len(c.Notification.Channels) == 0 {
		return fmt.Errorf("notification.channels must list at least one channel")
	}

	for _, ch := range c.Notification.Channels {
		switch ch {
		case entity.ChannelLog:
		case entity.ChannelEmail:
			if c.SendGrid.APIKey == "" {
				return fmt.Errorf("sendgrid.api_key is required for the email channel")
			}
			if c.SendGrid.FromEmail == "" {
				return fmt.Errorf("sendgrid.from_email is required for the email channel")
			}
		case entity.ChannelLark:
			if c.Lark.AppID == "" {
				return fmt.Errorf("lark.app_id is required for the lark channel")
			}
			if c.Lark.AppSecret == "" {
				return fmt.Errorf("lark.app_secret is required for the lark channel")
			}
		default:
			return fmt.Errorf("unknown notification channel %q", ch)
		}
	}

	return nil
}

// signingSecret returns the secret used for download URLs
func (c *Config) signingSecret() string {
	if c.Storage.SigningSecret != "" {
		return c.Storage.SigningSecret
	}
	return c.Auth.JWTSecret
}
