// Package comments хранит комментарии и их вес.
// models.go описывает структуры для таблицы comments.
package comments

import "time"

// Comment: комментарий к посту. Weight: сумма голосов, не меньше нуля.
type Comment struct {
	ID          int64     `db:"id" json:"id"`
	PostID      int64     `db:"post_id" json:"post_id"`
	AuthorEmail string    `db:"author_email" json:"-"` // По нему ищем автора для кармы
	AuthorName  string    `db:"author_name" json:"author_name"`
	Content     string    `db:"content" json:"content"`
	Weight      int       `db:"weight" json:"weight"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CreateInput: данные для нового комментария.
// CreatorID: текущий аутентифицированный пользователь (0 для гостя).
type CreateInput struct {
	PostID      int64
	CreatorID   int64
	AuthorEmail string
	AuthorName  string
	Content     string
}

// MaxContentLength: ограничение на длину текста комментария.
const MaxContentLength = 10000
