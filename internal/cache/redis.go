// Package cache управляет подключением к Redis, где хранится история голосов.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/config"
)

// Options собирает redis.Options из конфига.
// REDIS_ADDR может быть как host:port, так и redis:// URL.
func Options(cfg *config.Config) (*redis.Options, error) {
	if strings.Contains(cfg.RedisAddr, "://") {
		opts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("некорректный REDIS_ADDR %q: %w", cfg.RedisAddr, err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// NewClient создаёт клиента Redis и проверяет соединение.
// Без Redis голосование работать не может, поэтому ошибка фатальна для старта.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis недоступен: %w", err)
	}

	log.WithField("addr", opts.Addr).Info("Подключение к Redis установлено")
	return client, nil
}
