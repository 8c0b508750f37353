package main

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestReadConfig_Defaults(t *testing.T) {
	cfg := readConfig()

	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Errorf("unexpected default base url: %s", cfg.APIBaseURL)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("unexpected default metrics addr: %s", cfg.MetricsAddr)
	}
}

func TestReadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("STOREFRONT_API_BASE_URL", "http://api.example:8080")
	t.Setenv("STOREFRONT_METRICS_ADDR", ":9191")
	t.Setenv("STOREFRONT_CACHE_TTL", "5s")
	t.Setenv("STOREFRONT_FAST_POLL_INTERVAL", "2s")
	t.Setenv("STOREFRONT_SLOW_POLL_INTERVAL", "20s")
	t.Setenv("STOREFRONT_TELEGRAM_ID", "42")
	t.Setenv("STOREFRONT_USERNAME", "alice")
	t.Setenv("STOREFRONT_INIT_DATA", "signed-payload")

	cfg := readConfig()

	if cfg.APIBaseURL != "http://api.example:8080" {
		t.Errorf("base url override ignored: %s", cfg.APIBaseURL)
	}
	if cfg.MetricsAddr != ":9191" {
		t.Errorf("metrics addr override ignored: %s", cfg.MetricsAddr)
	}
	if cfg.CacheTTL != 5*time.Second {
		t.Errorf("cache ttl override ignored: %v", cfg.CacheTTL)
	}
	if cfg.FastPollInterval != 2*time.Second || cfg.SlowPollInterval != 20*time.Second {
		t.Errorf("poll interval overrides ignored: %v / %v", cfg.FastPollInterval, cfg.SlowPollInterval)
	}
	if cfg.TelegramID != 42 || cfg.Username != "alice" || cfg.InitData != "signed-payload" {
		t.Errorf("session overrides ignored: %+v", cfg)
	}
}

func TestReadConfig_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("STOREFRONT_CACHE_TTL", "not-a-duration")
	t.Setenv("STOREFRONT_TELEGRAM_ID", "not-a-number")

	cfg := readConfig()

	if cfg.CacheTTL != 10*time.Second {
		t.Errorf("invalid ttl should keep the default, got %v", cfg.CacheTTL)
	}
	if cfg.TelegramID != 0 {
		t.Errorf("invalid telegram id should keep the default, got %d", cfg.TelegramID)
	}
}

func TestSetupLogger(t *testing.T) {
	t.Setenv("STOREFRONT_LOG_LEVEL", "debug")

	setupLogger()

	if log.GetLevel() != log.DebugLevel {
		t.Errorf("expected debug level, got %v", log.GetLevel())
	}
}
