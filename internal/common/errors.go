// Package common: errors.go определяет ошибки, которые используются во всех
// модулях сервиса. Эти ошибки позволяют обработчикам различать типы проблем
// и отдавать клиенту понятные ответы.
package common

import "errors"

// Ошибки голосования
var (
	// ErrNotAuthenticated: анонимный пользователь пытается голосовать
	ErrNotAuthenticated = errors.New("you must be logged in to vote on comments")
	// ErrCooldownActive: пользователь уже голосовал за этот комментарий в пределах окна
	ErrCooldownActive = errors.New("you cannot vote on this comment at this time")
	// ErrInvalidDirection: голос не равен -1 или +1
	ErrInvalidDirection = errors.New("vote must be -1 or 1")
	// ErrStoreUnavailable: внешнее хранилище не ответило
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Ошибки хранилищ
var (
	// ErrCommentNotFound: комментарий не найден
	ErrCommentNotFound = errors.New("comment not found")
	// ErrUserNotFound: пользователь не найден в базе
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidComment: пустой текст или не указан автор
	ErrInvalidComment = errors.New("comment content and author email are required")
)

// Ошибки админки
var (
	// ErrNotAdmin: пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword: неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts: слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrInvalidKarma: карма должна быть неотрицательным целым
	ErrInvalidKarma = errors.New("карма должна быть целым числом >= 0")
)
