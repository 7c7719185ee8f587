// Package users: service.go содержит бизнес-логику управления пользователями.
package users

import (
	"context"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Service связывает HTTP-слой и админ-бота с репозиторием users.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис пользователей.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// EnsureUser гарантирует, что пользователь из токена есть в базе.
// Вызывается на каждый аутентифицированный запрос, как EnsureMember в боте.
func (s *Service) EnsureUser(ctx context.Context, id int64, email, displayName string) error {
	if id == 0 || email == "" {
		return nil
	}
	if err := s.repo.Upsert(ctx, id, email, displayName); err != nil {
		return err
	}
	log.WithField("user_id", id).Debug("user ensured")
	return nil
}

// GetByID возвращает пользователя по ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Lookup ищет пользователя по ID (если строка: число) или по e-mail.
func (s *Service) Lookup(ctx context.Context, ref string) (*User, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.GetByEmail(ctx, ref)
}

// SetExpertStatus выдаёт или снимает статус эксперта.
func (s *Service) SetExpertStatus(ctx context.Context, id int64, expert bool) error {
	return s.repo.SetExpertStatus(ctx, id, expert)
}

// SetKarma задаёт карму вручную (админка).
func (s *Service) SetKarma(ctx context.Context, id int64, karma int) error {
	return s.repo.SetKarma(ctx, id, karma)
}
