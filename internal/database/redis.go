package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vanhoc/mocktest/internal/config"
)

// NewRedisClient connects the store shared by the token and essay draft
// stores. Socket timeouts follow REQUEST_TIMEOUT.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.RequestTimeout > 0 {
		opt.DialTimeout = cfg.RequestTimeout
		opt.ReadTimeout = cfg.RequestTimeout
		opt.WriteTimeout = cfg.RequestTimeout
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, opt.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}

	log.Info().
		Str("component", "redis").
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Str("profile", cfg.Profile).
		Msg("Redis connected")

	return rdb, nil
}
