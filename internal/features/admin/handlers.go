// Package admin: handlers.go обрабатывает диалог с админ-панелью.
// Панель работает через Reply Keyboard в личных сообщениях.
// Поток: /login <пароль> → клавиатура → выбор действия → пошаговый диалог.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/common"
	"serotonyl.ru/comment-popularity/internal/features/users"
)

// Sender: отправка сообщений. Реализуется *telego.Bot.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Handler обрабатывает админ-команды.
type Handler struct {
	service *Service
	sender  Sender
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, sender Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleMessage обрабатывает сообщение администратора в DM.
// Кто может писать боту, решает фильтр чатов.
func (h *Handler) HandleMessage(ctx context.Context, msg *telego.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	adminID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	if cmd, arg := splitCommand(text); cmd == "/login" {
		h.handleLogin(ctx, chatID, adminID, arg)
		return
	}

	if !h.service.HasActiveSession(ctx, adminID) {
		h.sendMessage(ctx, chatID, "🔐 Войдите в админ-панель: /login <пароль>")
		return
	}
	h.service.Touch(ctx, adminID)

	switch text {
	case "/logout", ButtonLogout:
		if err := h.service.Logout(ctx, adminID); err != nil {
			log.WithError(err).WithField("admin_id", adminID).Error("Ошибка выхода из админки")
		}
		h.sendMessage(ctx, chatID, "👋 Сессия закрыта")
		return
	case "/cancel", ButtonCancel:
		h.service.ClearState(adminID)
		h.showKeyboard(ctx, chatID, "Действие отменено")
		return
	}

	if state := h.service.GetState(adminID); state != nil {
		h.handleState(ctx, chatID, adminID, state, text)
		return
	}

	switch text {
	case ButtonGrantExpert:
		h.ask(ctx, chatID, adminID, StateGrantExpert)
	case ButtonRevokeExpert:
		h.ask(ctx, chatID, adminID, StateRevokeExpert)
	case ButtonSetKarma:
		h.ask(ctx, chatID, adminID, StateKarmaSelect)
	case ButtonShowUser:
		h.ask(ctx, chatID, adminID, StateShowUser)
	case "/start", "Админ", "Панель", "админ", "панель":
		h.showKeyboard(ctx, chatID, "✅ Админ-панель открыта")
	default:
		h.showKeyboard(ctx, chatID, "Выберите действие на клавиатуре")
	}
}

func (h *Handler) handleLogin(ctx context.Context, chatID, adminID int64, password string) {
	if password == "" {
		h.sendMessage(ctx, chatID, "Использование: /login <пароль>")
		return
	}

	if err := h.service.Login(ctx, adminID, password); err != nil {
		if errors.Is(err, common.ErrWrongPassword) || errors.Is(err, common.ErrTooManyAttempts) {
			h.sendMessage(ctx, chatID, fmt.Sprintf("❌ %s", err.Error()))
			return
		}
		log.WithError(err).WithField("admin_id", adminID).Error("Ошибка входа в админку")
		h.sendMessage(ctx, chatID, "❌ Ошибка базы данных, попробуйте позже")
		return
	}

	h.showKeyboard(ctx, chatID, "✅ Аутентификация успешна!")
}

func (h *Handler) ask(ctx context.Context, chatID, adminID int64, state string) {
	h.service.SetState(adminID, state, 0)
	h.sendMessage(ctx, chatID, "Отправьте ID или e-mail пользователя:")
}

func (h *Handler) handleState(ctx context.Context, chatID, adminID int64, state *AdminState, text string) {
	switch state.State {
	case StateGrantExpert:
		u, err := h.service.GrantExpert(ctx, text)
		if h.failed(ctx, chatID, err) {
			return
		}
		h.service.ClearState(adminID)
		h.showKeyboard(ctx, chatID, "✅ Статус эксперта выдан\n\n"+userCard(u))

	case StateRevokeExpert:
		u, err := h.service.RevokeExpert(ctx, text)
		if h.failed(ctx, chatID, err) {
			return
		}
		h.service.ClearState(adminID)
		h.showKeyboard(ctx, chatID, "✅ Статус эксперта снят\n\n"+userCard(u))

	case StateShowUser:
		u, err := h.service.FindUser(ctx, text)
		if h.failed(ctx, chatID, err) {
			return
		}
		h.service.ClearState(adminID)
		h.showKeyboard(ctx, chatID, userCard(u))

	case StateKarmaSelect:
		u, err := h.service.FindUser(ctx, text)
		if h.failed(ctx, chatID, err) {
			return
		}
		h.service.SetState(adminID, StateKarmaValue, u.ID)
		h.sendMessage(ctx, chatID, fmt.Sprintf("%s\n\nВведите новую карму (целое число >= 0):", userCard(u)))

	case StateKarmaValue:
		u, err := h.service.SetKarma(ctx, state.TargetID, text)
		if h.failed(ctx, chatID, err) {
			return
		}
		h.service.ClearState(adminID)
		h.showKeyboard(ctx, chatID, "✅ Карма изменена\n\n"+userCard(u))

	default:
		h.service.ClearState(adminID)
		h.showKeyboard(ctx, chatID, "Выберите действие на клавиатуре")
	}
}

// failed отвечает админу на ошибку. Состояние не сбрасываем: можно ввести ещё раз.
func (h *Handler) failed(ctx context.Context, chatID int64, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, common.ErrUserNotFound):
		h.sendMessage(ctx, chatID, "❌ Пользователь не найден. Попробуйте ещё раз или нажмите «Отмена».")
	case errors.Is(err, common.ErrInvalidKarma):
		h.sendMessage(ctx, chatID, fmt.Sprintf("❌ %s", err.Error()))
	default:
		log.WithError(err).Error("Ошибка админ-действия")
		h.sendMessage(ctx, chatID, "❌ Ошибка базы данных, попробуйте позже")
	}
	return true
}

// showKeyboard отображает клавиатуру админ-панели.
func (h *Handler) showKeyboard(ctx context.Context, chatID int64, text string) {
	keyboard := tu.Keyboard(
		tu.KeyboardRow(
			tu.KeyboardButton(ButtonGrantExpert),
			tu.KeyboardButton(ButtonRevokeExpert),
		),
		tu.KeyboardRow(
			tu.KeyboardButton(ButtonSetKarma),
			tu.KeyboardButton(ButtonShowUser),
		),
		tu.KeyboardRow(
			tu.KeyboardButton(ButtonCancel),
			tu.KeyboardButton(ButtonLogout),
		),
	)
	keyboard.ResizeKeyboard = true

	msg := tu.Message(tu.ID(chatID), text)
	msg.ReplyMarkup = keyboard
	if _, err := h.sender.SendMessage(ctx, msg); err != nil {
		log.WithError(err).Error("Ошибка отправки клавиатуры")
	}
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.sender.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

func userCard(u *users.User) string {
	expert := "нет"
	if u.IsExpert {
		expert = "да"
	}
	return fmt.Sprintf("👤 %s\nID: %d\nКарма: %s\nЭксперт: %s", u.Label(), u.ID, common.FormatKarma(u.Karma), expert)
}

// splitCommand делит "/login secret" на команду и аргумент.
// "/login@MyBot secret" тоже понимаем.
func splitCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	cmd, arg, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}
