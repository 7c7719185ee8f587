// Package comments: repository.go выполняет операции с таблицей comments.
package comments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/comment-popularity/internal/common"
	"serotonyl.ru/comment-popularity/internal/db/postgres"
)

const commentColumns = `id, post_id, author_email, author_name, content, weight, created_at`

// Repository работает с таблицей comments.
type Repository struct {
	db postgres.Querier
}

// NewRepository создаёт репозиторий комментариев.
func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

// Create вставляет комментарий и заполняет ID, Weight и CreatedAt.
func (r *Repository) Create(ctx context.Context, c *Comment) error {
	query := `
		INSERT INTO comments (post_id, author_email, author_name, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, weight, created_at
	`
	err := r.db.QueryRow(ctx, query,
		c.PostID, common.NormalizeEmail(c.AuthorEmail), c.AuthorName, c.Content,
	).Scan(&c.ID, &c.Weight, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания комментария: %w", err)
	}
	return nil
}

// GetByID ищет комментарий. Если не найден, ошибка оборачивает common.ErrCommentNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	c, err := scanComment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("чтение комментария (id=%d): %w", id, err)
	}
	return c, nil
}

// AddWeight атомарно прибавляет delta к весу с отсечкой на нуле.
// Одна строка UPDATE, поэтому параллельные голоса не теряют инкременты.
func (r *Repository) AddWeight(ctx context.Context, id int64, delta int) (*Comment, error) {
	query := `
		UPDATE comments
		SET weight = GREATEST(0, weight + $2)
		WHERE id = $1
		RETURNING ` + commentColumns
	c, err := scanComment(r.db.QueryRow(ctx, query, id, delta))
	if err != nil {
		return nil, fmt.Errorf("обновление веса (id=%d): %w", id, err)
	}
	return c, nil
}

// ListByPost возвращает комментарии поста в порядке добавления.
func (r *Repository) ListByPost(ctx context.Context, postID int64) ([]*Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE post_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса комментариев: %w", err)
	}
	defer rows.Close()

	var out []*Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// ResetWeights обнуляет положительный вес у всех комментариев (деинсталляция).
func (r *Repository) ResetWeights(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE comments SET weight = 0 WHERE weight > $1`, 0)
	if err != nil {
		return 0, fmt.Errorf("ошибка сброса веса: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanComment(row pgx.Row) (*Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.PostID, &c.AuthorEmail, &c.AuthorName, &c.Content, &c.Weight, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrCommentNotFound
		}
		return nil, err
	}
	return &c, nil
}
