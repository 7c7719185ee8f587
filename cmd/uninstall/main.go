// Package main очищает данные сервиса: снимает экспертов и карму,
// обнуляет веса комментариев и удаляет историю голосов.
// Запускается вручную: go run ./cmd/uninstall
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/cache"
	"serotonyl.ru/comment-popularity/internal/config"
	"serotonyl.ru/comment-popularity/internal/db/postgres"
	"serotonyl.ru/comment-popularity/internal/features/comments"
	"serotonyl.ru/comment-popularity/internal/features/users"
	"serotonyl.ru/comment-popularity/internal/features/voting"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("Не удалось прочитать .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось подключиться к БД")
	}
	defer pool.Close()

	rdb, err := cache.NewClient(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось подключиться к Redis")
	}
	defer rdb.Close()

	log.Info("=== Очистка данных ===")

	resetUsers, err := users.NewRepository(pool).ResetAll(ctx)
	if err != nil {
		log.WithError(err).Fatal("Не удалось сбросить пользователей")
	}
	log.Infof("Пользователей сброшено: %d", resetUsers)

	resetComments, err := comments.NewRepository(pool).ResetWeights(ctx)
	if err != nil {
		log.WithError(err).Fatal("Не удалось обнулить веса")
	}
	log.Infof("Комментариев обнулено: %d", resetComments)

	purged, err := voting.NewRedisHistory(rdb, cfg.VoteClaimTTL).Purge(ctx)
	if err != nil {
		log.WithError(err).Fatal("Не удалось удалить историю голосов")
	}
	log.Infof("Ключей истории удалено: %d", purged)

	log.Info("=== Готово ===")
}
