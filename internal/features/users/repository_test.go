package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/comment-popularity/internal/common"
)

var userColumns = []string{"id", "email", "display_name", "karma", "is_expert", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("FROM users").WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(int64(7), "alice@example.com", "Alice", 12, true, now, now))

	u, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, 12, u.Karma)
	assert.True(t, u.IsExpert)
	assert.True(t, u.CanSeedComments())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM users").WithArgs(int64(404)).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestRepository_ResolveByAuthorIdentity(t *testing.T) {
	t.Run("registered author", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT id FROM users WHERE email").WithArgs("bob@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

		id, err := repo.ResolveByAuthorIdentity(context.Background(), " Bob@Example.com ")
		require.NoError(t, err)
		assert.Equal(t, int64(3), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("guest author", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT id FROM users WHERE email").WithArgs("guest@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.ResolveByAuthorIdentity(context.Background(), "guest@example.com")
		assert.ErrorIs(t, err, common.ErrUserNotFound)
	})

	t.Run("empty identity skips the query", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		_, err := repo.ResolveByAuthorIdentity(context.Background(), "  ")
		assert.ErrorIs(t, err, common.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error is not a miss", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		boom := errors.New("connection reset")
		mock.ExpectQuery("SELECT id FROM users WHERE email").WithArgs("bob@example.com").
			WillReturnError(boom)

		_, err := repo.ResolveByAuthorIdentity(context.Background(), "bob@example.com")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, common.ErrUserNotFound)
	})
}

func TestRepository_IncrementKarma(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SET karma = karma").WithArgs(int64(3), 1).
		WillReturnRows(pgxmock.NewRows([]string{"karma"}).AddRow(8))

	karma, err := repo.IncrementKarma(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, karma)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SetKarma(t *testing.T) {
	t.Run("negative rejected", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		assert.ErrorIs(t, repo.SetKarma(context.Background(), 1, -5), common.ErrInvalidKarma)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("UPDATE users SET karma").WithArgs(int64(1), 10).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		assert.ErrorIs(t, repo.SetKarma(context.Background(), 1, 10), common.ErrUserNotFound)
	})
}

func TestRepository_SetExpertStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE users SET is_expert").WithArgs(int64(2), true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetExpertStatus(context.Background(), 2, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Upsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO users").WithArgs(int64(9), "carol@example.com", "Carol").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Upsert(context.Background(), 9, "Carol@Example.com", "Carol"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ResetAll(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE users SET karma = 0").
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	n, err := repo.ResetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestService_Lookup(t *testing.T) {
	now := time.Now()

	t.Run("numeric ref is an id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("WHERE id = ").WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(5), "e@x.io", "", 0, false, now, now))

		u, err := NewService(repo).Lookup(context.Background(), "5")
		require.NoError(t, err)
		assert.Equal(t, int64(5), u.ID)
		assert.Equal(t, "e@x.io", u.Label())
	})

	t.Run("anything else is an email", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("WHERE email = ").WithArgs("e@x.io").
			WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(5), "e@x.io", "Eve", 0, false, now, now))

		u, err := NewService(repo).Lookup(context.Background(), "E@x.io")
		require.NoError(t, err)
		assert.Equal(t, "Eve <e@x.io>", u.Label())
	})
}

func TestService_EnsureUser_SkipsAnonymous(t *testing.T) {
	repo, mock := newMockRepo(t)
	require.NoError(t, NewService(repo).EnsureUser(context.Background(), 0, "", ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}
