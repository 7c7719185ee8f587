// Package users: repository.go отвечает за все операции с таблицей users в БД.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/comment-popularity/internal/common"
	"serotonyl.ru/comment-popularity/internal/db/postgres"
)

const selectUser = `
	SELECT id, email, display_name, karma, is_expert, created_at, updated_at
	FROM users
`

type Repository struct {
	db postgres.Querier
}

func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

// Upsert добавляет пользователя или обновляет e-mail/имя.
// Карму и статус эксперта не трогает.
func (r *Repository) Upsert(ctx context.Context, id int64, email, displayName string) error {
	query := `
		INSERT INTO users (id, email, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    display_name = EXCLUDED.display_name,
		    updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, id, common.NormalizeEmail(email), displayName); err != nil {
		return fmt.Errorf("ошибка создания/обновления пользователя (id=%d): %w", id, err)
	}
	return nil
}

// GetByID ищет пользователя. Если не найден, ошибка оборачивает common.ErrUserNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := r.scanOne(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("чтение пользователя (id=%d): %w", id, err)
	}
	return u, nil
}

// GetByEmail ищет пользователя по e-mail без учёта регистра.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := r.scanOne(r.db.QueryRow(ctx, selectUser+` WHERE email = $1`, common.NormalizeEmail(email)))
	if err != nil {
		return nil, fmt.Errorf("чтение пользователя (email=%s): %w", email, err)
	}
	return u, nil
}

// ResolveByAuthorIdentity возвращает ID пользователя по e-mail автора комментария.
// Гость или незарегистрированный автор: common.ErrUserNotFound.
func (r *Repository) ResolveByAuthorIdentity(ctx context.Context, identity string) (int64, error) {
	email := common.NormalizeEmail(identity)
	if email == "" {
		return 0, common.ErrUserNotFound
	}

	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.ErrUserNotFound
		}
		return 0, fmt.Errorf("поиск автора (email=%s): %w", email, err)
	}
	return id, nil
}

// IncrementKarma атомарно увеличивает карму и возвращает новое значение.
func (r *Repository) IncrementKarma(ctx context.Context, id int64, delta int) (int, error) {
	query := `
		UPDATE users
		SET karma = karma + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING karma
	`
	var karma int
	if err := r.db.QueryRow(ctx, query, id, delta).Scan(&karma); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("пользователь id=%d: %w", id, common.ErrUserNotFound)
		}
		return 0, fmt.Errorf("ошибка начисления кармы (id=%d): %w", id, err)
	}
	return karma, nil
}

// SetKarma выставляет карму вручную (админ).
func (r *Repository) SetKarma(ctx context.Context, id int64, karma int) error {
	if karma < 0 {
		return common.ErrInvalidKarma
	}
	return r.execOne(ctx, `UPDATE users SET karma = $2, updated_at = NOW() WHERE id = $1`, id, karma)
}

// SetExpertStatus выдаёт или снимает статус эксперта.
func (r *Repository) SetExpertStatus(ctx context.Context, id int64, expert bool) error {
	return r.execOne(ctx, `UPDATE users SET is_expert = $2, updated_at = NOW() WHERE id = $1`, id, expert)
}

// ResetAll снимает статус эксперта и обнуляет карму у всех (деинсталляция).
func (r *Repository) ResetAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE users SET karma = 0, is_expert = FALSE, updated_at = NOW() WHERE karma <> 0 OR is_expert`)
	if err != nil {
		return 0, fmt.Errorf("ошибка сброса кармы: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}
	return nil
}

func (r *Repository) scanOne(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Karma, &u.IsExpert, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
