package common

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// HTTPStatus сопоставляет ошибку сервиса с HTTP-статусом ответа.
// Неизвестная ошибка считается сбоем хранилища.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrNotAuthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrCooldownActive):
		return fiber.StatusTooManyRequests
	case errors.Is(err, ErrInvalidDirection), errors.Is(err, ErrInvalidComment), errors.Is(err, ErrInvalidKarma):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrCommentNotFound), errors.Is(err, ErrUserNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusServiceUnavailable
	}
}
