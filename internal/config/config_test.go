package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080 got %s", cfg.Port)
	}
	if cfg.ReviewMinLength != 20 {
		t.Fatalf("expected default review min length 20 got %d", cfg.ReviewMinLength)
	}
	if cfg.QuotePrefix != "DEV" || cfg.InvoicePrefix != "FAC" {
		t.Fatalf("unexpected prefixes %s/%s", cfg.QuotePrefix, cfg.InvoicePrefix)
	}
	if cfg.TokenValidityDays != 30 {
		t.Fatalf("expected 30 token validity days got %d", cfg.TokenValidityDays)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REVIEW_MIN_LENGTH", "50")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected 9090 got %s", cfg.Port)
	}
	if cfg.ReviewMinLength != 50 {
		t.Fatalf("expected 50 got %d", cfg.ReviewMinLength)
	}
}
