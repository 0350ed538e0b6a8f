package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"JWT_EXPIRY", "SERVER_PORT", "OVERDUE_SWEEP_INTERVAL", "AUTO_MIGRATE", "SMTP_PORT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	// Empty values fall back where parsing is involved.
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpiryPeriod)
	assert.Equal(t, time.Hour, cfg.Overdue.SweepInterval)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Less(t, cfg.Server.RequestTimeout, cfg.Server.WriteTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("OVERDUE_SWEEP_INTERVAL", "5m")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("DB_NAME", "portal_test")
	t.Setenv("SERVER_PORT", "9090")

	cfg := Load()

	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpiryPeriod)
	assert.Equal(t, 5*time.Minute, cfg.Overdue.SweepInterval)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Contains(t, cfg.DSN(), "dbname=portal_test")
}

func TestEmailEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.EmailEnabled())

	cfg.SMTP.Host = "mail.example.gov"
	assert.True(t, cfg.EmailEnabled())
}
