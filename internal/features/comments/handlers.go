package comments

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/common"
	"serotonyl.ru/comment-popularity/internal/middleware"
)

// Handler обрабатывает HTTP-запросы к комментариям.
type Handler struct {
	service *Service
	clock   clockwork.Clock
}

// NewHandler создаёт обработчик комментариев.
func NewHandler(service *Service, clock clockwork.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// Register вешает маршруты на группу /api.
func (h *Handler) Register(r fiber.Router) {
	r.Post("/posts/:id/comments", h.Create)
	r.Get("/posts/:id/comments", h.ListByPost)
	r.Get("/comments/:id", h.Get)
}

type createRequest struct {
	Content     string `json:"content" form:"content"`
	AuthorName  string `json:"author_name" form:"author_name"`
	AuthorEmail string `json:"author_email" form:"author_email"`
}

// Create: POST /api/posts/:id/comments.
// Вошедший пользователь комментирует от своего имени, гость указывает e-mail сам.
func (h *Handler) Create(c *fiber.Ctx) error {
	postID, err := parseID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid post ID")
	}

	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	in := CreateInput{
		PostID:      postID,
		CreatorID:   middleware.UserID(c),
		AuthorEmail: req.AuthorEmail,
		AuthorName:  req.AuthorName,
		Content:     req.Content,
	}
	if in.CreatorID != 0 {
		in.AuthorEmail = middleware.Email(c)
		if in.AuthorName == "" {
			in.AuthorName = middleware.Name(c)
		}
	}

	comment, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": comment})
}

// ListByPost: GET /api/posts/:id/comments, самые весомые первыми.
func (h *Handler) ListByPost(c *fiber.Ctx) error {
	postID, err := parseID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid post ID")
	}

	list, err := h.service.ListByPost(c.UserContext(), postID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if list == nil {
		list = []*Comment{}
	}

	return c.JSON(fiber.Map{"success": true, "data": list})
}

// Get: GET /api/comments/:id вместе с can_vote для текущего пользователя.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid comment ID")
	}

	view, err := h.service.Get(c.UserContext(), id, middleware.UserID(c), h.clock.Now())
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": view})
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.ErrBadRequest
	}
	return id, nil
}

func respondServiceError(c *fiber.Ctx, err error) error {
	status := common.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("comments request failed")
		return respondError(c, status, "Service temporarily unavailable")
	}
	return respondError(c, status, err.Error())
}

func respondError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": msg})
}
