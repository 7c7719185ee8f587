// Package voting: engine.go содержит правила голосования: кто может голосовать,
// как голос меняет вес комментария и карму автора, и как эксперт
// задаёт начальный вес своих комментариев.
//
// Движок не хранит состояния: всё лежит во внешних хранилищах, которые
// передаются в конструктор.
package voting

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/comment-popularity/internal/common"
	"serotonyl.ru/comment-popularity/internal/features/comments"
	"serotonyl.ru/comment-popularity/internal/features/users"
)

// CommentStore: хранилище комментариев.
// AddWeight обязан быть атомарным и отсекать вес на нуле.
type CommentStore interface {
	GetByID(ctx context.Context, id int64) (*comments.Comment, error)
	AddWeight(ctx context.Context, id int64, delta int) (*comments.Comment, error)
}

// UserStore: хранилище пользователей.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
	ResolveByAuthorIdentity(ctx context.Context, identity string) (int64, error)
	IncrementKarma(ctx context.Context, id int64, delta int) (int, error)
}

// HistoryStore: когда пользователь последний раз голосовал за комментарий.
// Claim/Release: короткий захват пары на время одного голоса, чтобы два
// параллельных запроса не прошли проверку окна одновременно.
type HistoryStore interface {
	LastVote(ctx context.Context, userID, commentID int64) (time.Time, bool, error)
	RecordVote(ctx context.Context, userID, commentID int64, at time.Time) error
	Claim(ctx context.Context, userID, commentID int64) (bool, error)
	Release(ctx context.Context, userID, commentID int64) error
}

// Engine: движок голосования.
type Engine struct {
	comments CommentStore
	users    UserStore
	history  HistoryStore
	cooldown time.Duration
	metrics  *Metrics
}

// NewEngine создаёт движок голосования.
func NewEngine(commentStore CommentStore, userStore UserStore, history HistoryStore, cooldown time.Duration, metrics *Metrics) *Engine {
	return &Engine{
		comments: commentStore,
		users:    userStore,
		history:  history,
		cooldown: cooldown,
		metrics:  metrics,
	}
}

// Cooldown возвращает окно между голосами одного пользователя за один комментарий.
func (e *Engine) Cooldown() time.Duration {
	return e.cooldown
}

// CanVote: может ли пользователь голосовать за комментарий в момент now.
// Аноним не может никогда. Без прошлого голоса: может. Иначе: если с
// прошлого голоса прошло строго больше окна.
func (e *Engine) CanVote(ctx context.Context, userID, commentID int64, now time.Time) (bool, error) {
	err := e.eligibility(ctx, userID, commentID, now)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrNotAuthenticated), errors.Is(err, common.ErrCooldownActive):
		return false, nil
	default:
		return false, err
	}
}

// CastVote применяет голос direction (-1 или +1) пользователя userID.
//
// Порядок шагов:
//  1. повторная проверка CanVote (не доверяем прошлому вызову);
//  2. вес = max(0, вес + direction);
//  3. при голосе «за» автор комментария получает +1 к карме, если он зарегистрирован;
//  4. запоминаем now как время голоса: только если шаг 2 удался.
func (e *Engine) CastVote(ctx context.Context, userID, commentID int64, direction int, now time.Time) (result Result, err error) {
	start := time.Now()
	defer func() {
		e.metrics.Votes.WithLabelValues(directionLabel(direction), outcomeLabel(err)).Inc()
		e.metrics.VoteDuration.Observe(time.Since(start).Seconds())
	}()

	if !ValidDirection(direction) {
		return Result{}, common.ErrInvalidDirection
	}
	if userID == Anonymous {
		return Result{}, common.ErrNotAuthenticated
	}

	claimed, err := e.history.Claim(ctx, userID, commentID)
	if err != nil {
		return Result{}, storeErr(err)
	}
	if !claimed {
		// Параллельный голос этой же пары ещё в процессе
		return Result{}, common.ErrCooldownActive
	}
	defer func() {
		if relErr := e.history.Release(ctx, userID, commentID); relErr != nil {
			log.WithError(relErr).WithFields(log.Fields{
				"user_id":    userID,
				"comment_id": commentID,
			}).Warn("vote claim release failed")
		}
	}()

	if err := e.eligibility(ctx, userID, commentID, now); err != nil {
		return Result{}, err
	}

	comment, err := e.comments.AddWeight(ctx, commentID, direction)
	if err != nil {
		if errors.Is(err, common.ErrCommentNotFound) {
			return Result{}, err
		}
		return Result{}, storeErr(err)
	}

	if direction == Up {
		e.awardAuthor(ctx, comment)
	}

	if err := e.history.RecordVote(ctx, userID, commentID, now); err != nil {
		return Result{}, storeErr(err)
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"comment_id": commentID,
		"direction":  direction,
		"weight":     comment.Weight,
	}).Debug("vote accepted")

	return Result{Weight: comment.Weight, CommentID: commentID}, nil
}

// InitializeCommentWeight задаёт начальный вес нового комментария.
// Если автор: эксперт с положительной кармой, вес увеличивается на карму
// тем же путём, что и голос. Иначе комментарий не трогаем и возвращаем nil.
func (e *Engine) InitializeCommentWeight(ctx context.Context, commentID, creatorID int64) (*comments.Comment, error) {
	if creatorID == Anonymous {
		return nil, nil
	}

	creator, err := e.users.GetByID(ctx, creatorID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil, nil
		}
		return nil, storeErr(err)
	}
	if !creator.CanSeedComments() {
		return nil, nil
	}

	comment, err := e.comments.AddWeight(ctx, commentID, creator.Karma)
	if err != nil {
		if errors.Is(err, common.ErrCommentNotFound) {
			return nil, err
		}
		return nil, storeErr(err)
	}

	e.metrics.SeededComments.Inc()
	log.WithFields(log.Fields{
		"comment_id": commentID,
		"creator_id": creatorID,
		"weight":     comment.Weight,
	}).Info("expert comment weight seeded")

	return comment, nil
}

// GetWeight возвращает текущий вес комментария.
func (e *Engine) GetWeight(ctx context.Context, commentID int64) (int, error) {
	c, err := e.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, common.ErrCommentNotFound) {
			return 0, err
		}
		return 0, storeErr(err)
	}
	return c.Weight, nil
}

// SortByWeightDescending: см. функцию пакета с тем же именем.
func (e *Engine) SortByWeightDescending(list []*comments.Comment) []*comments.Comment {
	return SortByWeightDescending(list)
}

func (e *Engine) eligibility(ctx context.Context, userID, commentID int64, now time.Time) error {
	if userID == Anonymous {
		return common.ErrNotAuthenticated
	}

	last, ok, err := e.history.LastVote(ctx, userID, commentID)
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return nil
	}
	if now.Sub(last) > e.cooldown {
		return nil
	}
	return common.ErrCooldownActive
}

// awardAuthor начисляет автору +1 к карме. Гость или незарегистрированный
// автор: не ошибка. Сбой хранилища здесь логируем и идём дальше: голос
// уже применён и должен быть записан в историю.
func (e *Engine) awardAuthor(ctx context.Context, comment *comments.Comment) {
	logger := log.WithFields(log.Fields{
		"comment_id": comment.ID,
		"component":  "karma",
	})

	authorID, err := e.users.ResolveByAuthorIdentity(ctx, comment.AuthorEmail)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			logger.Debug("comment author is not registered, karma skipped")
		} else {
			logger.WithError(err).Error("author lookup failed, karma skipped")
		}
		return
	}

	karma, err := e.users.IncrementKarma(ctx, authorID, 1)
	if err != nil {
		logger.WithError(err).WithField("author_id", authorID).Error("karma increment failed")
		return
	}

	e.metrics.KarmaAwarded.Inc()
	logger.WithFields(log.Fields{
		"author_id": authorID,
		"karma":     karma,
	}).Debug("author karma increased")
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
}
