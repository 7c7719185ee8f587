package admin

import (
	"context"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []*telego.SendMessageParams
}

func (s *fakeSender) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	s.sent = append(s.sent, params)
	return &telego.Message{}, nil
}

func (s *fakeSender) last(t *testing.T) *telego.SendMessageParams {
	t.Helper()
	require.NotEmpty(t, s.sent)
	return s.sent[len(s.sent)-1]
}

func newHandlerFixture(t *testing.T, defaultKarma int) (*Handler, *serviceFixture, *fakeSender) {
	t.Helper()
	f := newServiceFixture(t, defaultKarma)
	sender := &fakeSender{}
	return NewHandler(f.svc, sender), f, sender
}

func dm(text string) *telego.Message {
	return &telego.Message{
		Text: text,
		From: &telego.User{ID: adminID},
		Chat: telego.Chat{ID: adminID, Type: telego.ChatTypePrivate},
	}
}

func TestHandler_RequiresLogin(t *testing.T) {
	h, f, sender := newHandlerFixture(t, 0)
	ctx := context.Background()

	h.HandleMessage(ctx, dm(ButtonGrantExpert))
	assert.Contains(t, sender.last(t).Text, "/login")
	assert.Nil(t, f.svc.GetState(adminID))

	h.HandleMessage(ctx, dm("/login wrong"))
	assert.Contains(t, sender.last(t).Text, "неверный пароль")

	h.HandleMessage(ctx, dm("/login"))
	assert.Contains(t, sender.last(t).Text, "Использование")

	h.HandleMessage(ctx, dm("/login "+testPassword))
	assert.Contains(t, sender.last(t).Text, "Аутентификация успешна")
	assert.NotNil(t, sender.last(t).ReplyMarkup)
	assert.True(t, f.svc.HasActiveSession(ctx, adminID))
}

func TestHandler_GrantExpertFlow(t *testing.T) {
	h, f, sender := newHandlerFixture(t, 5)
	ctx := context.Background()
	h.HandleMessage(ctx, dm("/login "+testPassword))

	h.HandleMessage(ctx, dm(ButtonGrantExpert))
	assert.Contains(t, sender.last(t).Text, "ID или e-mail")

	h.HandleMessage(ctx, dm("ghost@example.com"))
	assert.Contains(t, sender.last(t).Text, "не найден")
	require.NotNil(t, f.svc.GetState(adminID))

	h.HandleMessage(ctx, dm("alice@example.com"))
	assert.Contains(t, sender.last(t).Text, "Статус эксперта выдан")
	assert.Contains(t, sender.last(t).Text, "5 очков кармы")
	assert.True(t, f.users.byID[1].IsExpert)
	assert.Nil(t, f.svc.GetState(adminID))
	assert.Positive(t, f.sessions.touched)
}

func TestHandler_SetKarmaFlow(t *testing.T) {
	h, f, sender := newHandlerFixture(t, 0)
	ctx := context.Background()
	h.HandleMessage(ctx, dm("/login "+testPassword))

	h.HandleMessage(ctx, dm(ButtonSetKarma))
	h.HandleMessage(ctx, dm("2"))
	assert.Contains(t, sender.last(t).Text, "Введите новую карму")

	h.HandleMessage(ctx, dm("-1"))
	assert.Contains(t, sender.last(t).Text, "карма должна быть")
	assert.Equal(t, 12, f.users.byID[2].Karma)

	h.HandleMessage(ctx, dm("21"))
	assert.Contains(t, sender.last(t).Text, "21 очко кармы")
	assert.Equal(t, 21, f.users.byID[2].Karma)
}

func TestHandler_CancelAndLogout(t *testing.T) {
	h, f, sender := newHandlerFixture(t, 0)
	ctx := context.Background()
	h.HandleMessage(ctx, dm("/login "+testPassword))

	h.HandleMessage(ctx, dm(ButtonRevokeExpert))
	h.HandleMessage(ctx, dm(ButtonCancel))
	assert.Nil(t, f.svc.GetState(adminID))
	assert.True(t, f.users.byID[2].IsExpert)

	h.HandleMessage(ctx, dm(ButtonLogout))
	assert.Contains(t, sender.last(t).Text, "Сессия закрыта")
	assert.False(t, f.svc.HasActiveSession(ctx, adminID))
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in  string
		cmd string
		arg string
	}{
		{"/login secret", "/login", "secret"},
		{"/LOGIN@PopularityBot  pass word ", "/login", "pass word"},
		{"/start", "/start", ""},
		{"hello", "", ""},
	}

	for _, tt := range tests {
		cmd, arg := splitCommand(tt.in)
		assert.Equal(t, tt.cmd, cmd, tt.in)
		assert.Equal(t, tt.arg, arg, tt.in)
	}
}
