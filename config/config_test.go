package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "ticket.emails", cfg.EmailQueueName)
	assert.Equal(t, 2*time.Second, cfg.ScanCooldown)
	assert.Equal(t, 30*time.Second, cfg.ViewFlushInterval)
	assert.Equal(t, 5*time.Minute, cfg.EmailSweepInterval)
	assert.Equal(t, 3, cfg.ReferenceRetries)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SCAN_COOLDOWN", "500ms")
	t.Setenv("REFERENCE_RETRIES", "5")
	t.Setenv("ENABLE_METRICS", "false")

	cfg := LoadConfig()

	assert.Equal(t, 500*time.Millisecond, cfg.ScanCooldown)
	assert.Equal(t, 5, cfg.ReferenceRetries)
	assert.False(t, cfg.EnableMetrics)
}

func TestGetEnvAsDuration_BadValueFallsBack(t *testing.T) {
	t.Setenv("SCAN_COOLDOWN", "not-a-duration")

	cfg := LoadConfig()

	assert.Equal(t, 2*time.Second, cfg.ScanCooldown)
}
