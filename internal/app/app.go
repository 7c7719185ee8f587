// Package app инициализирует все компоненты приложения.
// app.go собирает приложение: создаёт БД-пул, Redis, репозитории, движок
// голосования, HTTP-сервер, планировщик и (по флагу) админ-бота.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/api"
	"serotonyl.ru/comment-popularity/internal/bot"
	"serotonyl.ru/comment-popularity/internal/bot/filters"
	"serotonyl.ru/comment-popularity/internal/cache"
	"serotonyl.ru/comment-popularity/internal/config"
	"serotonyl.ru/comment-popularity/internal/db/postgres"
	"serotonyl.ru/comment-popularity/internal/features/admin"
	"serotonyl.ru/comment-popularity/internal/features/comments"
	"serotonyl.ru/comment-popularity/internal/features/users"
	"serotonyl.ru/comment-popularity/internal/features/voting"
	"serotonyl.ru/comment-popularity/internal/jobs"
	"serotonyl.ru/comment-popularity/internal/middleware"
)

// App содержит все компоненты приложения.
type App struct {
	HTTP      *api.Server
	Scheduler *jobs.Scheduler
	// Bot равен nil, если FEATURE_ADMIN_BOT_ENABLED=false
	Bot   *bot.Bot
	DB    *pgxpool.Pool
	Redis *redis.Client
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен: компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	clock := clockwork.NewRealClock()

	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	applied, err := postgres.RunMigrations(ctx, pool, Migrations)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}
	log.Infof("Миграций применено: %d", applied)

	// === 2. Redis (история голосов) ===
	rdb, err := cache.NewClient(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}

	// === 3. Метрики ===
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := voting.NewMetrics(registry)

	// === 4. Репозитории ===
	userRepo := users.NewRepository(pool)
	commentRepo := comments.NewRepository(pool)
	history := voting.NewRedisHistory(rdb, cfg.VoteClaimTTL)

	// === 5. Сервисы ===
	engine := voting.NewEngine(commentRepo, userRepo, history, cfg.VoteCooldown, metrics)
	userService := users.NewService(userRepo)
	commentService := comments.NewService(commentRepo, engine)

	// === 6. HTTP ===
	server := api.New(cfg, api.Deps{
		Voting:      voting.NewHandler(engine, clock),
		Comments:    comments.NewHandler(commentService, clock),
		Users:       users.NewHandler(userService),
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, clock),
		Gatherer:    registry,
		Checks: map[string]api.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(history, cfg.VoteHistoryRetention(), cfg.VoteHistoryPruneSchedule, clock, metrics.HistoryPruned)

	application := &App{
		HTTP:      server,
		Scheduler: scheduler,
		DB:        pool,
		Redis:     rdb,
	}

	// === 8. Админ-бот ===
	if cfg.FeatureAdminBotEnabled {
		b, err := newBot(cfg, pool, userService, clock)
		if err != nil {
			application.Close()
			return nil, err
		}
		application.Bot = b
	}

	return application, nil
}

// Close закрывает соединения с хранилищами.
func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		log.WithError(err).Warn("redis close failed")
	}
	a.DB.Close()
}

func newBot(cfg *config.Config, pool *pgxpool.Pool, userService *users.Service, clock clockwork.Clock) (*bot.Bot, error) {
	var opts []telego.BotOption
	if cfg.AppEnv == "development" {
		opts = append(opts, telego.WithDefaultDebugLogger())
	}

	tg, err := telego.NewBot(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}

	adminService := admin.NewService(admin.NewRepository(pool), userService, cfg, clock)
	adminHandler := admin.NewHandler(adminService, tg)
	chatFilter := filters.NewChatFilter(cfg.AdminIDs, tg)

	return bot.New(tg, tg, cfg, adminHandler, chatFilter, clock), nil
}
