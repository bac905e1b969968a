// Package config loads server settings from an optional YAML file plus the
// environment. Environment variables always win, so a deployment can override
// a checked-in config file without editing it.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          string `yaml:"port"`
	AllowedOrigin string `yaml:"allowed_origin"`

	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	CouponPolicy    string `yaml:"coupon_policy"`
	StatsTTLSeconds int    `yaml:"stats_ttl_seconds"`
}

// Load reads CONFIG_FILE if set, then layers the environment on top.
func Load() (Config, error) {
	cfg := Config{
		Port:            "8080",
		CouponPolicy:    "lenient",
		StatsTTLSeconds: 30,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", cfg.AllowedOrigin)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.CouponPolicy = getEnv("COUPON_POLICY", cfg.CouponPolicy)
	cfg.StatsTTLSeconds = getEnvInt("STATS_TTL_SECONDS", cfg.StatsTTLSeconds)

	if cfg.CouponPolicy != "lenient" && cfg.CouponPolicy != "strict" {
		return Config{}, fmt.Errorf("COUPON_POLICY must be lenient or strict, got %q", cfg.CouponPolicy)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
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
