package config

import (
	"github.com/garyjia/expense-reimbursement/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
		},
		Storage: container.StorageConfig{
			BaseDir:       c.Storage.BaseDir,
			SigningSecret: c.Storage.SigningSecret,
			FilesBaseURL:  c.Storage.FilesBaseURL,
			SignedURLTTL:  c.Storage.SignedURLTTL,
		},
		Notification: container.NotificationConfig{
			Channels:    append([]string(nil), c.Notification.Channels...),
			AppURL:      c.Notification.AppURL,
			MaxAttempts: c.Notification.MaxAttempts,
			RetryBatch:  c.Notification.RetryBatch,
		},
		Lark: container.LarkConfig{
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
			BaseURL:   c.Lark.BaseURL,
		},
		SendGrid: container.SendGridConfig{
			APIKey:    c.SendGrid.APIKey,
			FromEmail: c.SendGrid.FromEmail,
			FromName:  c.SendGrid.FromName,
			Host:      c.SendGrid.Host,
		},
		Voucher: container.VoucherConfig{Currency: c.Voucher.Currency},
		Invite:  container.InviteConfig{TTL: c.Invite.TTL},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
		Worker: container.WorkerConfig{
			RetryNotificationsSchedule: c.Worker.RetryNotificationsSchedule,
			ExpireInviteLinksSchedule:  c.Worker.ExpireInviteLinksSchedule,
			JobTimeout:                 c.Worker.JobTimeout,
		},
	}
}
