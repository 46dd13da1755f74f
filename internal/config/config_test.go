package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  path: /tmp/expenses-test.db
notification:
  channels: [log, email]
  app_url: https://expenses.example.com
sendgrid:
  from_email: noreply@example.com
worker:
  job_timeout: 30s
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SENDGRID_API_KEY", "SG.env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "/tmp/expenses-test.db", cfg.Database.Path)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "SG.env", cfg.SendGrid.APIKey)
	assert.Equal(t, []string{"log", "email"}, cfg.Notification.Channels)
	assert.Equal(t, 30*time.Second, cfg.Worker.JobTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.Invite.TTL)
	assert.Equal(t, "INR", cfg.Voucher.Currency)

	cc := cfg.ToContainerConfig()
	require.NoError(t, cc.Validate())
	assert.Equal(t, "https://expenses.example.com", cc.Notification.AppURL)
	assert.Equal(t, "noreply@example.com", cc.SendGrid.FromEmail)
	assert.Equal(t, "0 */5 * * * *", cc.Worker.RetryNotificationsSchedule)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"log"}, cfg.Notification.Channels)
	assert.Equal(t, "data/expenses.db", cfg.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeConfig(t, "server:\n  port: 8080\n"))
	assert.ErrorContains(t, err, "auth.jwt_secret")
}

func TestValidate_Channels(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Path: "x.db"},
			Auth:     AuthConfig{JWTSecret: "s"},
			Storage:  StorageConfig{BaseDir: "files"},
		}
	}

	cfg := base()
	cfg.Notification.Channels = []string{"lark"}
	assert.ErrorContains(t, cfg.Validate(), "lark.app_id")

	cfg.Lark = LarkConfig{AppID: "cli_a", AppSecret: "secret"}
	assert.NoError(t, cfg.Validate())

	cfg.Notification.Channels = []string{"sms"}
	assert.ErrorContains(t, cfg.Validate(), "unknown notification channel")

	cfg = base()
	cfg.Server.Port = 0
	assert.ErrorContains(t, cfg.Validate(), "server.port")
}
