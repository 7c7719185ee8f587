// Package filters решает, какие апдейты бот вообще обрабатывает.
package filters

import (
	"context"
	"slices"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/features/admin"
)

// ChatFilter пропускает только личные сообщения от ADMIN_IDS.
type ChatFilter struct {
	adminIDs []int64
	sender   admin.Sender
}

func NewChatFilter(adminIDs []int64, sender admin.Sender) *ChatFilter {
	return &ChatFilter{adminIDs: adminIDs, sender: sender}
}

func (f *ChatFilter) CheckAccess(ctx context.Context, message *telego.Message) bool {
	if message == nil {
		log.WithField("component", "ChatFilter").Warn("nil message")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (service/channel message?)")
		return false
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"user_id":   message.From.ID,
	})

	// Группы и каналы игнорируем молча
	if message.Chat.Type != telego.ChatTypePrivate {
		logger.Debug("deny: not private")
		return false
	}

	if !slices.Contains(f.adminIDs, message.From.ID) {
		logger.Info("deny: private (not in ADMIN_IDS)")
		msg := tu.Message(tu.ID(message.Chat.ID), "❌ Бот доступен только администраторам сайта")
		if _, err := f.sender.SendMessage(ctx, msg); err != nil {
			logger.WithError(err).Warn("failed to send deny message")
		}
		return false
	}

	logger.Debug("allow: private admin")
	return true
}
