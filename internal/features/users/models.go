// Package users хранит зарегистрированных пользователей: карму и статус эксперта.
// models.go описывает структуры данных для работы с таблицей users.
package users

import "time"

// User: зарегистрированный пользователь сайта.
// ID приходит из внешней системы аутентификации (claim sub в JWT).
type User struct {
	ID          int64     `db:"id" json:"id"`
	Email       string    `db:"email" json:"-"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Karma       int       `db:"karma" json:"karma"`         // Никогда не уменьшается голосованием
	IsExpert    bool      `db:"is_expert" json:"is_expert"` // Выдаётся администратором
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CanSeedComments: новые комментарии такого пользователя получают вес, равный его карме.
func (u *User) CanSeedComments() bool {
	return u.IsExpert && u.Karma > 0
}

// Label возвращает отображаемое имя пользователя для админ-бота.
func (u *User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName + " <" + u.Email + ">"
	}
	return u.Email
}
