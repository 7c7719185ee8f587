// Package middleware содержит промежуточные обработчики для аутентификации,
// логирования, восстановления после паники и rate-limiting.
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	localUserID = "userID"
	localEmail  = "userEmail"
	localName   = "userName"
)

// Claims: содержимое токена, который выдаёт внешняя система аутентификации.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Auth разбирает Bearer-токен, если он есть.
// Без заголовка запрос идёт дальше как анонимный: решать, можно ли
// анониму, будет движок голосования. Битый или просроченный токен: 401.
func Auth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}

		// С пустым ключом любой может подписать токен сам
		if secret == "" {
			return unauthorized(c, "Authentication is not configured")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return unauthorized(c, "Invalid authorization header format")
		}

		var claims Claims
		token, err := jwt.ParseWithClaims(parts[1], &claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return unauthorized(c, "Invalid or expired token")
		}

		userID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || userID <= 0 {
			return unauthorized(c, "Invalid user ID in token")
		}

		c.Locals(localUserID, userID)
		c.Locals(localEmail, claims.Email)
		c.Locals(localName, claims.Name)
		return c.Next()
	}
}

// IssueToken подписывает токен в том же формате, что ожидает Auth.
// Нужен тестам и локальной отладке.
func IssueToken(secret string, userID int64, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// UserID возвращает ID текущего пользователя или 0 для анонима.
func UserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(localUserID).(int64)
	return id
}

// Email возвращает e-mail текущего пользователя из токена.
func Email(c *fiber.Ctx) string {
	email, _ := c.Locals(localEmail).(string)
	return email
}

// Name возвращает отображаемое имя текущего пользователя из токена.
func Name(c *fiber.Ctx) string {
	name, _ := c.Locals(localName).(string)
	return name
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
}
