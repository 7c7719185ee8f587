// Package voting: движок голосования за комментарии.
// models.go описывает направления голоса, результат и виды ошибок.
package voting

import (
	"errors"
	"strconv"

	"serotonyl.ru/comment-popularity/internal/common"
)

// Anonymous: ID неаутентифицированного пользователя.
const Anonymous int64 = 0

// Направления голоса
const (
	Down = -1
	Up   = 1
)

// ValidDirection: голос может быть только -1 или +1.
func ValidDirection(direction int) bool {
	return direction == Down || direction == Up
}

// ParseDirection разбирает голос из запроса ("1", "-1", "+1").
func ParseDirection(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || !ValidDirection(v) {
		return 0, common.ErrInvalidDirection
	}
	return v, nil
}

func directionLabel(direction int) string {
	switch direction {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "invalid"
	}
}

// Result описывает успешный голос: новый вес комментария.
type Result struct {
	Weight    int   `json:"weight"`
	CommentID int64 `json:"comment_id"`
}

// Виды ошибок, которые видит клиент
const (
	KindNotAuthenticated = "NotAuthenticated"
	KindCooldownActive   = "CooldownActive"
	KindInvalidDirection = "InvalidDirection"
	KindCommentNotFound  = "CommentNotFound"
	KindStoreUnavailable = "StoreUnavailable"
)

// ErrorKind сопоставляет ошибку движка с видом ошибки для ответа.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, common.ErrNotAuthenticated):
		return KindNotAuthenticated
	case errors.Is(err, common.ErrCooldownActive):
		return KindCooldownActive
	case errors.Is(err, common.ErrInvalidDirection):
		return KindInvalidDirection
	case errors.Is(err, common.ErrCommentNotFound):
		return KindCommentNotFound
	default:
		return KindStoreUnavailable
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "accepted"
	}
	return ErrorKind(err)
}
