package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds all client configuration.
type Config struct {
	AuthAPIURL     string
	TestAPIURL     string
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
	// TokenStore selects where the bearer token is persisted between runs.
	TokenStore string
	TokenFile  string
	// Profile namespaces the redis token key.
	Profile    string
	RedisURL   string
	DraftStore string
	// ArchiveDatabaseURL enables the finalized-attempt archive when set.
	ArchiveDatabaseURL string
	MaxDBConns         int32
	TickInterval       time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AuthAPIURL:         trimSlash(getEnv("AUTH_API_URL", "http://localhost:8081/api/v1")),
		TestAPIURL:         trimSlash(getEnv("TEST_API_URL", "http://localhost:8084/api/v1")),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "pretty"),
		TokenStore:         strings.ToLower(getEnv("TOKEN_STORE", StoreFile)),
		TokenFile:          getEnv("TOKEN_FILE", defaultTokenFile()),
		Profile:            getEnv("PROFILE", "default"),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DraftStore:         strings.ToLower(getEnv("DRAFT_STORE", StoreMemory)),
		ArchiveDatabaseURL: getEnv("ARCHIVE_DATABASE_URL", ""),
		MaxDBConns:         int32(getEnvInt("MAX_DB_CONNS", 4)),
		TickInterval:       time.Duration(getEnvInt("TICK_INTERVAL_MS", 1000)) * time.Millisecond,
	}
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
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func trimSlash(u string) string {
	return strings.TrimRight(u, "/")
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".vanhoc-token"
	}
	return filepath.Join(dir, "vanhoc", "token")
}
