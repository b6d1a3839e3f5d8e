package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "DATABASE_URL", "KAFKA_BROKERS", "SWEEP_INTERVAL", "ABANDON_AFTER", "RETAIN_FOR"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, ":8082", cfg.HTTPAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 3*time.Hour, cfg.AbandonAfter)
	assert.Equal(t, 7*24*time.Hour, cfg.RetainFor)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SWEEP_INTERVAL", "15m")
	t.Setenv("ABANDON_AFTER", "garbage")
	t.Setenv("RETAIN_FOR", "-1h")

	cfg := Load()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 3*time.Hour, cfg.AbandonAfter)
	assert.Equal(t, 7*24*time.Hour, cfg.RetainFor)
}
