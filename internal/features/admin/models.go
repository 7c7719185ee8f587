// Package admin реализует админ-панель в Telegram с парольной аутентификацией:
// выдача и снятие статуса эксперта, ручная правка кармы.
// models.go описывает структуры сессий, попыток входа и состояний диалога.
package admin

import "time"

// AdminSession: активная сессия администратора.
type AdminSession struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"` // Telegram ID администратора
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

// LoginAttempt: попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// AdminState: состояние диалога с админом (конечный автомат).
// Действие → ввод пользователя (ID или e-mail) → для кармы ещё ввод числа.
type AdminState struct {
	State     string
	TargetID  int64 // Выбранный пользователь сайта
	ExpiresAt time.Time
}

// Возможные состояния админ-диалога
const (
	StateNone         = ""
	StateGrantExpert  = "grant_expert"  // Ждём пользователя для выдачи статуса
	StateRevokeExpert = "revoke_expert" // Ждём пользователя для снятия статуса
	StateKarmaSelect  = "karma_select"  // Ждём пользователя для правки кармы
	StateKarmaValue   = "karma_value"   // Ждём новое значение кармы
	StateShowUser     = "show_user"     // Ждём пользователя для просмотра
)

// Параметры входа
const (
	MaxFailedAttempts = 3
	AttemptsWindow    = time.Hour
	SessionTTL        = 24 * time.Hour
	StateTTL          = 5 * time.Minute
)

// Кнопки клавиатуры
const (
	ButtonGrantExpert  = "Выдать эксперта"
	ButtonRevokeExpert = "Снять эксперта"
	ButtonSetKarma     = "Изменить карму"
	ButtonShowUser     = "Найти пользователя"
	ButtonCancel       = "Отмена"
	ButtonLogout       = "Выйти"
)
