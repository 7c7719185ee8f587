package voting

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/common"
	"serotonyl.ru/comment-popularity/internal/middleware"
)

// Voter: операции движка, которые нужны HTTP-обработчикам.
type Voter interface {
	CastVote(ctx context.Context, userID, commentID int64, direction int, now time.Time) (Result, error)
	GetWeight(ctx context.Context, commentID int64) (int, error)
}

// Handler обрабатывает HTTP-запросы голосования.
type Handler struct {
	voter Voter
	clock clockwork.Clock
}

// NewHandler создаёт обработчик голосования.
func NewHandler(voter Voter, clock clockwork.Clock) *Handler {
	return &Handler{voter: voter, clock: clock}
}

// Register вешает маршруты на группу /api.
func (h *Handler) Register(r fiber.Router) {
	r.Post("/comments/:id/vote", h.Vote)
	r.Get("/comments/:id/weight", h.Weight)
}

type voteRequest struct {
	Vote *int `json:"vote" form:"vote"`
}

type failure struct {
	ErrorKind    string `json:"error_kind"`
	ErrorMessage string `json:"error_message"`
	CommentID    int64  `json:"comment_id"`
}

// Тексты, которые видит пользователь под кнопками голосования
var messages = map[string]string{
	KindNotAuthenticated: "You must be logged in to vote on comments",
	KindCooldownActive:   "You cannot vote on this comment at this time",
	KindInvalidDirection: "Vote must be -1 or 1",
	KindCommentNotFound:  "Comment not found",
	KindStoreUnavailable: "Voting is temporarily unavailable, please try again later",
}

// Vote: POST /api/comments/:id/vote, тело {"vote": 1|-1}.
func (h *Handler) Vote(c *fiber.Ctx) error {
	commentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || commentID <= 0 {
		return h.fail(c, 0, common.ErrCommentNotFound)
	}

	var req voteRequest
	if err := c.BodyParser(&req); err != nil || req.Vote == nil || !ValidDirection(*req.Vote) {
		return h.fail(c, commentID, common.ErrInvalidDirection)
	}

	result, err := h.voter.CastVote(c.UserContext(), middleware.UserID(c), commentID, *req.Vote, h.clock.Now())
	if err != nil {
		return h.fail(c, commentID, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

// Weight: GET /api/comments/:id/weight.
func (h *Handler) Weight(c *fiber.Ctx) error {
	commentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || commentID <= 0 {
		return h.fail(c, 0, common.ErrCommentNotFound)
	}

	weight, err := h.voter.GetWeight(c.UserContext(), commentID)
	if err != nil {
		return h.fail(c, commentID, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": Result{Weight: weight, CommentID: commentID}})
}

func (h *Handler) fail(c *fiber.Ctx, commentID int64, err error) error {
	kind := ErrorKind(err)
	if kind == KindStoreUnavailable {
		log.WithError(err).WithField("comment_id", commentID).Error("vote request failed")
	}

	return c.Status(common.HTTPStatus(err)).JSON(fiber.Map{
		"success": false,
		"data": failure{
			ErrorKind:    kind,
			ErrorMessage: messages[kind],
			CommentID:    commentID,
		},
	})
}
