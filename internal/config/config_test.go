package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TEST_API_URL", "")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "")

	cfg := Load()

	assert.Equal(t, "http://localhost:8084/api/v1", cfg.TestAPIURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Second, cfg.TickInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TEST_API_URL", "https://api.example.com/tests/")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "3")
	t.Setenv("TOKEN_STORE", "REDIS")
	t.Setenv("TICK_INTERVAL_MS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "https://api.example.com/tests", cfg.TestAPIURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, StoreRedis, cfg.TokenStore)
	assert.Equal(t, time.Second, cfg.TickInterval)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "auth:default:token", CacheKey.TokenKey("default"))
	assert.Equal(t, "attempt:42:essay_drafts", CacheKey.EssayDraftsKey(42))
}
