// Package config reads deployment settings from the environment so main stays
// lean. Every knob has a development default except the salt, which has no
// safe default and is validated at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup. Optional backends
// (Postgres, Redis, Kafka) are enabled by presence of their URL; absence falls
// back to in-memory equivalents.
type Config struct {
	Addr string

	// Salt feeds fingerprint computation. Rotating it invalidates every
	// previously issued document, so it is required and never defaulted.
	Salt string

	// LinkBaseURL, when set, makes QR codes carry {base}/verify/{digest}
	// instead of the bare digest.
	LinkBaseURL string

	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	RenderFormat string
	FontPath     string
	FontPoints   float64
	FetchTimeout time.Duration
	ItemTimeout  time.Duration
}

// RedisConfig configures the optional job-state backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	JobTTL       time.Duration
}

// KafkaConfig configures the optional audit event stream.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from CERTPASS_* environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:         envOr("CERTPASS_ADDR", ":8080"),
		Salt:         os.Getenv("CERTPASS_SALT"),
		LinkBaseURL:  os.Getenv("CERTPASS_BASE_URL"),
		PostgresURL:  os.Getenv("CERTPASS_POSTGRES_URL"),
		RenderFormat: envOr("CERTPASS_RENDER_FORMAT", "png"),
		FontPath:     os.Getenv("CERTPASS_FONT_PATH"),
		FontPoints:   envFloatOr("CERTPASS_FONT_POINTS", 0),
		FetchTimeout: envDurationOr("CERTPASS_FETCH_TIMEOUT", 10*time.Second),
		ItemTimeout:  envDurationOr("CERTPASS_ITEM_TIMEOUT", 30*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("CERTPASS_REDIS_URL"),
			PoolSize:     envIntOr("CERTPASS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("CERTPASS_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("CERTPASS_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("CERTPASS_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("CERTPASS_REDIS_WRITE_TIMEOUT", 3*time.Second),
			JobTTL:       envDurationOr("CERTPASS_REDIS_JOB_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("CERTPASS_KAFKA_BROKERS")),
			Topic:   envOr("CERTPASS_KAFKA_TOPIC", "certpass.audit"),
		},
	}

	if cfg.Salt == "" {
		return Config{}, fmt.Errorf("CERTPASS_SALT is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
