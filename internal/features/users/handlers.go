package users

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/common"
	"serotonyl.ru/comment-popularity/internal/middleware"
)

// Handler обрабатывает HTTP-запросы к пользователям.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик пользователей.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register вешает маршруты на группу /api.
func (h *Handler) Register(r fiber.Router) {
	r.Get("/users/:id", h.Get)
}

// profile: то, что видно о пользователе снаружи.
type profile struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Karma       int    `json:"karma"`
	IsExpert    bool   `json:"is_expert"`
}

// Get отдаёт карму и статус эксперта (GET /api/users/:id).
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid user ID"})
	}

	u, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		status := common.HTTPStatus(err)
		msg := "User not found"
		if !errors.Is(err, common.ErrUserNotFound) {
			log.WithError(err).WithField("user_id", id).Error("user lookup failed")
			msg = "Service temporarily unavailable"
		}
		return c.Status(status).JSON(fiber.Map{"success": false, "error": msg})
	}

	return c.JSON(fiber.Map{"success": true, "data": profile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Karma:       u.Karma,
		IsExpert:    u.IsExpert,
	}})
}

// EnsureUser возвращает middleware, которое заводит пользователя из токена в базе.
// Ошибка не блокирует запрос, без строки в users просто не будет кармы.
func (h *Handler) EnsureUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := middleware.UserID(c)
		if id != 0 {
			if err := h.service.EnsureUser(c.UserContext(), id, middleware.Email(c), middleware.Name(c)); err != nil {
				log.WithError(err).WithField("user_id", id).Warn("ensure user failed")
			}
		}
		return c.Next()
	}
}
