// Package bot содержит админ-бота в Telegram: запуск, остановку и маршрутизацию апдейтов.
package bot

import (
	"context"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/bot/filters"
	"serotonyl.ru/comment-popularity/internal/config"
	"serotonyl.ru/comment-popularity/internal/features/admin"
	"serotonyl.ru/comment-popularity/internal/middleware"
)

const helpText = "Админ-панель Comment Popularity.\n\n" +
	"/login <пароль>: вход на 24 часа\n" +
	"/logout: выход\n" +
	"/cancel: отменить текущее действие\n\n" +
	"После входа используйте кнопки клавиатуры."

// Bot: админ-бот.
type Bot struct {
	api *telego.Bot
	cfg *config.Config

	sender       admin.Sender
	chatFilter   *filters.ChatFilter
	rateLimiter  *middleware.RateLimiter
	adminHandler *admin.Handler
	parser       *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт бота. api может быть nil в тестах: тогда Start не вызывают.
func New(
	api *telego.Bot,
	sender admin.Sender,
	cfg *config.Config,
	adminHandler *admin.Handler,
	chatFilter *filters.ChatFilter,
	clock clockwork.Clock,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 16
	}

	return &Bot{
		api:          api,
		cfg:          cfg,
		sender:       sender,
		chatFilter:   chatFilter,
		rateLimiter:  middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, clock),
		adminHandler: adminHandler,
		parser:       NewCommandParser(),
		inflight:     make(chan struct{}, maxInFlight),
	}
}

// Start запускает long polling и блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) error {
	defer b.rateLimiter.Close()

	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: b.cfg.BotUpdateTimeoutSeconds,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Админ-бот запущен и ожидает сообщения...")

	return b.dispatch(ctx, updates)
}

// dispatch раздаёт апдейты горутинам, не больше cap(inflight) одновременно.
// Ожидание свободного слота тоже прерывается отменой ctx.
func (b *Bot) dispatch(ctx context.Context, updates <-chan telego.Update) error {
	for {
		select {
		case <-ctx.Done():
			log.Info("Админ-бот останавливается (ctx done)...")
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return nil
			}

			// лимит параллелизма
			select {
			case b.inflight <- struct{}{}:
			case <-ctx.Done():
				log.Info("Админ-бот останавливается (ctx done)...")
				return nil
			}
			go func(upd telego.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic()

	message := update.Message
	if message == nil || message.Text == "" {
		return
	}

	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	if !b.rateLimiter.Allow("tg:" + strconv.FormatInt(message.From.ID, 10)) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	if cmd, _, isCommand := b.parser.ParseCommand(message.Text); isCommand && cmd == "help" {
		b.sendMessage(ctx, message.Chat.ID, helpText)
		return
	}

	b.adminHandler.HandleMessage(ctx, message)
}

// sendMessage: утилита для отправки сообщений.
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := b.sender.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
