package config

import (
	"testing"
	"time"
)

func TestParseOrigins(t *testing.T) {
	if got := parseOrigins(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}

	got := parseOrigins(" http://a.test , ,http://b.test")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", got)
	}
}

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("QUIZ_CACHE_TTL_MINUTES", "5")
	t.Setenv("REDIS_POOL_SIZE", "32")
	t.Setenv("EXPIRY_POLL_INTERVAL_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.ServerPort)
	}
	if cfg.RedisPoolSize != 32 {
		t.Fatalf("expected redis pool 32, got %d", cfg.RedisPoolSize)
	}
	if cfg.QuizCacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %s", cfg.QuizCacheTTL)
	}
	if cfg.ExpiryPollInterval != 5*time.Second {
		t.Fatalf("invalid int should fall back to default, got %s", cfg.ExpiryPollInterval)
	}
}

func TestCacheKeys(t *testing.T) {
	if k := CacheKey.QuizAggregateKey("q1"); k != "quiz:q1:aggregate" {
		t.Fatalf("unexpected key %q", k)
	}
	if k := CacheKey.UserSessionKey("u1"); k != "login:u1" {
		t.Fatalf("unexpected key %q", k)
	}
}
