package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

const headerRequestID = "X-Request-ID"

// RequestLogger логирует каждый HTTP-запрос и проставляет X-Request-ID.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(headerRequestID, requestID)

		err := c.Next()

		entry := log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_id":    UserID(c),
		})
		if err != nil {
			entry.WithError(err).Warn("request failed")
		} else {
			entry.Debug("request")
		}
		return err
	}
}

// LogMessage логирует входящее сообщение админ-бота.
// Записывает: user_id, chat_id, username, текст (первые 50 символов).
// Сам текст для /login не пишем, там пароль.
func LogMessage(message *telego.Message) {
	if message == nil || message.From == nil {
		return
	}

	log.WithFields(log.Fields{
		"user_id":  message.From.ID,
		"chat_id":  message.Chat.ID,
		"username": message.From.Username,
		"text":     messagePreview(message.Text),
		"time":     time.Now().Format("15:04:05"),
	}).Debug("Входящее сообщение")
}

const previewRunes = 50

// messagePreview обрезает текст по символам, а не по байтам: кириллица
// занимает два байта и не должна рваться посередине.
func messagePreview(text string) string {
	if strings.HasPrefix(text, "/login") {
		return "/login ***"
	}
	runes := []rune(text)
	if len(runes) > previewRunes {
		return string(runes[:previewRunes]) + "..."
	}
	return text
}
