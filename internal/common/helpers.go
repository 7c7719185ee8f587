// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация и форматирование для ответов админ-бота.
package common

import (
	"fmt"
	"strings"
)

// Pluralize возвращает правильную форму слова для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func Pluralize(n int, one, few, many string) string {
	absN := n
	if absN < 0 {
		absN = -absN
	}
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// FormatKarma форматирует карму в читабельную строку.
// Пример: FormatKarma(5) → "5 очков кармы"
func FormatKarma(karma int) string {
	return fmt.Sprintf("%d %s кармы", karma, Pluralize(karma, "очко", "очка", "очков"))
}

// NormalizeEmail приводит e-mail к виду, по которому ищем автора комментария.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
