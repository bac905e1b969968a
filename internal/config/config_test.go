package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("COUPON_POLICY", "")
	t.Setenv("STATS_TTL_SECONDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %s, want 8080", cfg.Port)
	}
	if cfg.CouponPolicy != "lenient" {
		t.Fatalf("coupon policy = %s, want lenient", cfg.CouponPolicy)
	}
	if cfg.StatsTTLSeconds != 30 {
		t.Fatalf("stats ttl = %d, want 30", cfg.StatsTTLSeconds)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"9000\"\ncoupon_policy: strict\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9999")
	t.Setenv("COUPON_POLICY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Fatalf("port = %s, want env override 9999", cfg.Port)
	}
	if cfg.CouponPolicy != "strict" {
		t.Fatalf("coupon policy = %s, want strict from file", cfg.CouponPolicy)
	}
}

func TestLoadRejectsBadCouponPolicy(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("COUPON_POLICY", "sometimes")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for bad coupon policy")
	}
}
