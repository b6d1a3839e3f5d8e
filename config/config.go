package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string

	// DatabaseURL selects Postgres; empty runs on the in-memory store.
	DatabaseURL string
	RedisAddr   string
	SessionTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	SweepInterval time.Duration
	AbandonAfter  time.Duration
	RetainFor     time.Duration
}

func Load() Config {
	return Config{
		AppEnv:        getEnv("APP_ENV", "dev"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8082"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		KafkaBrokers:  getEnvList("KAFKA_BROKERS"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "cart-lifecycle"),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Hour),
		AbandonAfter:  getEnvDuration("ABANDON_AFTER", 3*time.Hour),
		RetainFor:     getEnvDuration("RETAIN_FOR", 7*24*time.Hour),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
