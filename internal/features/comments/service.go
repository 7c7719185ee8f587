// Package comments: service.go содержит бизнес-логику создания и выдачи комментариев.
package comments

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/common"
)

// Store: операции хранилища комментариев, которые нужны сервису.
type Store interface {
	Create(ctx context.Context, c *Comment) error
	GetByID(ctx context.Context, id int64) (*Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]*Comment, error)
}

// Voting: часть движка голосования, которой пользуется сервис.
type Voting interface {
	InitializeCommentWeight(ctx context.Context, commentID, creatorID int64) (*Comment, error)
	CanVote(ctx context.Context, userID, commentID int64, now time.Time) (bool, error)
	SortByWeightDescending(list []*Comment) []*Comment
}

// Service управляет комментариями.
type Service struct {
	store  Store
	voting Voting
}

// NewService создаёт сервис комментариев.
func NewService(store Store, voting Voting) *Service {
	return &Service{store: store, voting: voting}
}

// Create сохраняет комментарий и один раз задаёт его начальный вес.
// Ошибка начального веса не отменяет комментарий: он уже в базе.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Comment, error) {
	content := strings.TrimSpace(in.Content)
	email := common.NormalizeEmail(in.AuthorEmail)
	if content == "" || email == "" || len(content) > MaxContentLength {
		return nil, common.ErrInvalidComment
	}

	c := &Comment{
		PostID:      in.PostID,
		AuthorEmail: email,
		AuthorName:  strings.TrimSpace(in.AuthorName),
		Content:     content,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}

	seeded, err := s.voting.InitializeCommentWeight(ctx, c.ID, in.CreatorID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"comment_id": c.ID,
			"creator_id": in.CreatorID,
		}).Error("initial comment weight failed")
	} else if seeded != nil {
		c.Weight = seeded.Weight
	}

	log.WithFields(log.Fields{
		"comment_id": c.ID,
		"post_id":    c.PostID,
		"weight":     c.Weight,
	}).Info("comment created")

	return c, nil
}

// View: комментарий плюс признак, может ли текущий пользователь голосовать.
type View struct {
	*Comment
	CanVote bool `json:"can_vote"`
}

// Get возвращает комментарий для отображения пользователю userID.
func (s *Service) Get(ctx context.Context, id, userID int64, now time.Time) (*View, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	can, err := s.voting.CanVote(ctx, userID, id, now)
	if err != nil {
		// Кнопки голосования просто будут выключены
		log.WithError(err).WithField("comment_id", id).Warn("can vote check failed")
		can = false
	}
	return &View{Comment: c, CanVote: can}, nil
}

// ListByPost возвращает комментарии поста, самые весомые первыми.
func (s *Service) ListByPost(ctx context.Context, postID int64) ([]*Comment, error) {
	list, err := s.store.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.voting.SortByWeightDescending(list), nil
}
