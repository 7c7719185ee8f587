// Package admin: service.go содержит логику аутентификации, управления сессиями,
// state-машину диалога и операции над экспертами и кармой.
package admin

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/common"
	"serotonyl.ru/comment-popularity/internal/config"
	"serotonyl.ru/comment-popularity/internal/features/users"
)

// SessionStore: хранилище сессий и попыток входа.
type SessionStore interface {
	CreateSession(ctx context.Context, session *AdminSession) error
	GetActiveSession(ctx context.Context, userID int64, now time.Time) (*AdminSession, error)
	DeactivateSession(ctx context.Context, userID int64) error
	UpdateActivity(ctx context.Context, userID int64) error
	LogAttempt(ctx context.Context, userID int64, success bool) error
	CountFailedAttempts(ctx context.Context, userID int64, since time.Time) (int, error)
}

// UserAdmin: операции над пользователями сайта, доступные админке.
type UserAdmin interface {
	Lookup(ctx context.Context, ref string) (*users.User, error)
	GetByID(ctx context.Context, id int64) (*users.User, error)
	SetExpertStatus(ctx context.Context, id int64, expert bool) error
	SetKarma(ctx context.Context, id int64, karma int) error
}

// Service управляет админ-панелью.
type Service struct {
	repo               SessionStore
	users              UserAdmin
	passwordHash       string
	defaultExpertKarma int
	clock              clockwork.Clock

	states   map[int64]*AdminState // Состояния диалогов (in-memory)
	statesMu sync.RWMutex
}

// NewService создаёт сервис админ-панели.
func NewService(repo SessionStore, userAdmin UserAdmin, cfg *config.Config, clock clockwork.Clock) *Service {
	return &Service{
		repo:               repo,
		users:              userAdmin,
		passwordHash:       cfg.AdminPasswordHash,
		defaultExpertKarma: cfg.DefaultExpertKarma,
		clock:              clock,
		states:             make(map[int64]*AdminState),
	}
}

// Login проверяет пароль администратора и открывает сессию на 24 часа.
// 3 неудачные попытки за час блокируют вход.
func (s *Service) Login(ctx context.Context, adminID int64, password string) error {
	now := s.clock.Now()

	attempts, err := s.repo.CountFailedAttempts(ctx, adminID, now.Add(-AttemptsWindow))
	if err != nil {
		return err
	}
	if attempts >= MaxFailedAttempts {
		return common.ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.passwordHash)

	if err := s.repo.LogAttempt(ctx, adminID, match); err != nil {
		log.WithError(err).WithField("admin_id", adminID).Error("Не удалось записать попытку входа")
	}

	if !match {
		log.WithField("admin_id", adminID).Warn("Неверный пароль админки")
		return common.ErrWrongPassword
	}

	session := &AdminSession{
		UserID:       adminID,
		SessionToken: generateSecureToken(),
		ExpiresAt:    now.Add(SessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return err
	}

	log.WithField("admin_id", adminID).Info("Вход в админ-панель")
	return nil
}

// Logout закрывает сессию и сбрасывает диалог.
func (s *Service) Logout(ctx context.Context, adminID int64) error {
	s.ClearState(adminID)
	return s.repo.DeactivateSession(ctx, adminID)
}

// HasActiveSession проверяет, есть ли у администратора активная сессия.
func (s *Service) HasActiveSession(ctx context.Context, adminID int64) bool {
	session, err := s.repo.GetActiveSession(ctx, adminID, s.clock.Now())
	if err != nil {
		log.WithError(err).WithField("admin_id", adminID).Error("Ошибка проверки сессии")
		return false
	}
	return session != nil
}

// Touch обновляет активность сессии.
func (s *Service) Touch(ctx context.Context, adminID int64) {
	if err := s.repo.UpdateActivity(ctx, adminID); err != nil {
		log.WithError(err).WithField("admin_id", adminID).Warn("Не удалось обновить активность сессии")
	}
}

// GetState возвращает текущее состояние диалога или nil.
func (s *Service) GetState(adminID int64) *AdminState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()

	state, ok := s.states[adminID]
	if !ok || s.clock.Now().After(state.ExpiresAt) {
		return nil
	}
	return state
}

// SetState устанавливает состояние диалога с 5-минутным таймаутом.
func (s *Service) SetState(adminID int64, stateName string, targetID int64) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	s.states[adminID] = &AdminState{
		State:     stateName,
		TargetID:  targetID,
		ExpiresAt: s.clock.Now().Add(StateTTL),
	}
}

// ClearState сбрасывает состояние диалога.
func (s *Service) ClearState(adminID int64) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	delete(s.states, adminID)
}

// FindUser ищет пользователя сайта по ID или e-mail.
func (s *Service) FindUser(ctx context.Context, ref string) (*users.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.ErrUserNotFound
	}
	return s.users.Lookup(ctx, ref)
}

// GrantExpert выдаёт статус эксперта. Если кармы нет совсем,
// она становится равной DEFAULT_EXPERT_KARMA.
func (s *Service) GrantExpert(ctx context.Context, ref string) (*users.User, error) {
	u, err := s.FindUser(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetExpertStatus(ctx, u.ID, true); err != nil {
		return nil, err
	}
	if u.Karma == 0 && s.defaultExpertKarma > 0 {
		if err := s.users.SetKarma(ctx, u.ID, s.defaultExpertKarma); err != nil {
			return nil, err
		}
	}

	log.WithField("user_id", u.ID).Info("Выдан статус эксперта")
	return s.users.GetByID(ctx, u.ID)
}

// RevokeExpert снимает статус эксперта. Карма не меняется.
func (s *Service) RevokeExpert(ctx context.Context, ref string) (*users.User, error) {
	u, err := s.FindUser(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetExpertStatus(ctx, u.ID, false); err != nil {
		return nil, err
	}

	log.WithField("user_id", u.ID).Info("Снят статус эксперта")
	return s.users.GetByID(ctx, u.ID)
}

// SetKarma задаёт карму из текста админа. Принимается только целое >= 0.
func (s *Service) SetKarma(ctx context.Context, userID int64, raw string) (*users.User, error) {
	karma, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || karma < 0 {
		return nil, common.ErrInvalidKarma
	}

	if err := s.users.SetKarma(ctx, userID, karma); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": userID, "karma": karma}).Info("Карма изменена вручную")
	return s.users.GetByID(ctx, userID)
}
