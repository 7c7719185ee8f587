package voting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/comment-popularity/internal/common"
	"serotonyl.ru/comment-popularity/internal/features/comments"
	"serotonyl.ru/comment-popularity/internal/features/users"
)

const (
	userA  int64 = 101
	userB  int64 = 102
	author int64 = 200

	commentC int64 = 1
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	engine   *Engine
	comments *stubComments
	users    *stubUsers
	history  *memHistory
	metrics  *Metrics
	clock    *clockwork.FakeClock
}

func newFixture(t *testing.T, weight int) *fixture {
	t.Helper()

	f := &fixture{
		comments: newStubComments(&comments.Comment{
			ID:          commentC,
			PostID:      10,
			AuthorEmail: "author@example.com",
			Weight:      weight,
		}),
		users: newStubUsers(
			&users.User{ID: userA, Email: "a@example.com"},
			&users.User{ID: userB, Email: "b@example.com"},
			&users.User{ID: author, Email: "author@example.com", Karma: 3},
		),
		history: newMemHistory(),
		metrics: NewMetrics(prometheus.NewRegistry()),
		clock:   clockwork.NewFakeClockAt(baseTime),
	}
	f.engine = NewEngine(f.comments, f.users, f.history, 15*time.Minute, f.metrics)
	return f
}

func (f *fixture) vote(userID int64, direction int) (Result, error) {
	return f.engine.CastVote(context.Background(), userID, commentC, direction, f.clock.Now())
}

func TestCanVote_FirstVoteAllowed(t *testing.T) {
	f := newFixture(t, 0)

	ok, err := f.engine.CanVote(context.Background(), userA, commentC, f.clock.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanVote_Anonymous(t *testing.T) {
	f := newFixture(t, 0)

	ok, err := f.engine.CanVote(context.Background(), Anonymous, commentC, f.clock.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanVote_StoreFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.history.lastErr = errors.New("connection refused")

	ok, err := f.engine.CanVote(context.Background(), userA, commentC, f.clock.Now())
	assert.False(t, ok)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestCastVote_Cooldown(t *testing.T) {
	tests := []struct {
		name    string
		after   time.Duration
		wantErr error
	}{
		{name: "one second later", after: time.Second, wantErr: common.ErrCooldownActive},
		{name: "exactly the window", after: 15 * time.Minute, wantErr: common.ErrCooldownActive},
		{name: "window plus a second", after: 15*time.Minute + time.Second},
		{name: "sixteen minutes later", after: 16 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 5)

			_, err := f.vote(userA, Up)
			require.NoError(t, err)

			f.clock.Advance(tt.after)
			_, err = f.vote(userA, Up)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 6, f.comments.weight(commentC))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 7, f.comments.weight(commentC))
		})
	}
}

func TestCastVote_CooldownIsPerPair(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.vote(userA, Up)
	require.NoError(t, err)

	// Другой пользователь за тот же комментарий голосует сразу
	_, err = f.vote(userB, Up)
	require.NoError(t, err)

	ok, err := f.engine.CanVote(context.Background(), userA, commentC, f.clock.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, f.comments.weight(commentC))
}

func TestCastVote_UpvoteAwardsAuthorKarma(t *testing.T) {
	f := newFixture(t, 0)

	res, err := f.vote(userA, Up)
	require.NoError(t, err)
	assert.Equal(t, Result{Weight: 1, CommentID: commentC}, res)
	assert.Equal(t, 4, f.users.karma(author))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.KarmaAwarded))
}

func TestCastVote_DownvoteKeepsKarma(t *testing.T) {
	f := newFixture(t, 2)

	res, err := f.vote(userA, Down)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Weight)
	assert.Equal(t, 3, f.users.karma(author))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.KarmaAwarded))
}

func TestCastVote_UnregisteredAuthor(t *testing.T) {
	f := newFixture(t, 0)
	f.comments.byID[commentC].AuthorEmail = "guest@example.com"

	res, err := f.vote(userA, Up)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Weight)
	assert.Equal(t, 1, f.history.recorded())
}

func TestCastVote_KarmaFailureStillRecordsVote(t *testing.T) {
	f := newFixture(t, 0)
	f.users.karmaErr = errors.New("deadlock detected")

	_, err := f.vote(userA, Up)
	require.NoError(t, err)
	assert.Equal(t, 1, f.history.recorded())

	f.users.karmaErr = nil
	f.users.resolveErr = errors.New("timeout")
	_, err = f.vote(userB, Up)
	require.NoError(t, err)
	assert.Equal(t, 2, f.history.recorded())
	assert.Equal(t, 3, f.users.karma(author))
}

func TestCastVote_DownvoteScenario(t *testing.T) {
	f := newFixture(t, 3)

	res, err := f.vote(userA, Down)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Weight)

	ok, err := f.engine.CanVote(context.Background(), userA, commentC, f.clock.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	res, err = f.vote(userB, Down)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Weight)

	f.clock.Advance(16 * time.Minute)
	res, err = f.vote(userB, Down)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Weight)

	f.clock.Advance(16 * time.Minute)
	res, err = f.vote(userB, Down)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Weight)

	// Окно у A давно прошло
	ok, err = f.engine.CanVote(context.Background(), userA, commentC, f.clock.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCastVote_Anonymous(t *testing.T) {
	f := newFixture(t, 3)

	_, err := f.vote(Anonymous, Up)
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.Equal(t, KindNotAuthenticated, ErrorKind(err))
	assert.Equal(t, 3, f.comments.weight(commentC))
	assert.Equal(t, 0, f.history.recorded())
	assert.Equal(t, 0, f.comments.addCall)
}

func TestCastVote_InvalidDirection(t *testing.T) {
	for _, direction := range []int{0, 2, -2, 100} {
		f := newFixture(t, 3)

		_, err := f.vote(userA, direction)
		assert.ErrorIs(t, err, common.ErrInvalidDirection, "direction=%d", direction)
		assert.Equal(t, 0, f.comments.addCall)
		assert.Equal(t, 0, f.history.recorded())
	}
}

func TestCastVote_WeightUpdateFailure(t *testing.T) {
	f := newFixture(t, 3)
	f.comments.addErr = errors.New("connection reset by peer")

	_, err := f.vote(userA, Up)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.Equal(t, KindStoreUnavailable, ErrorKind(err))
	assert.Equal(t, 0, f.history.recorded())
	assert.Equal(t, 3, f.users.karma(author))

	// Голос не потрачен: после восстановления можно сразу
	f.comments.addErr = nil
	_, err = f.vote(userA, Up)
	require.NoError(t, err)
	assert.Equal(t, 4, f.comments.weight(commentC))
}

func TestCastVote_HistoryFailures(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		f := newFixture(t, 3)
		f.history.lastErr = errors.New("redis down")

		_, err := f.vote(userA, Up)
		assert.ErrorIs(t, err, common.ErrStoreUnavailable)
		assert.Equal(t, 0, f.comments.addCall)
	})

	t.Run("claim", func(t *testing.T) {
		f := newFixture(t, 3)
		f.history.claimErr = errors.New("redis down")

		_, err := f.vote(userA, Up)
		assert.ErrorIs(t, err, common.ErrStoreUnavailable)
		assert.Equal(t, 0, f.comments.addCall)
	})

	t.Run("record", func(t *testing.T) {
		f := newFixture(t, 3)
		f.history.recordErr = errors.New("redis down")

		_, err := f.vote(userA, Up)
		assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	})
}

func TestCastVote_CommentNotFound(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.engine.CastVote(context.Background(), userA, 999, Up, f.clock.Now())
	assert.ErrorIs(t, err, common.ErrCommentNotFound)
	assert.NotErrorIs(t, err, common.ErrStoreUnavailable)
	assert.Equal(t, 0, f.history.recorded())
}

func TestCastVote_ClaimHeld(t *testing.T) {
	f := newFixture(t, 0)
	f.history.claims[pairKey(userA, commentC)] = true

	_, err := f.vote(userA, Up)
	assert.ErrorIs(t, err, common.ErrCooldownActive)
	assert.Equal(t, 0, f.comments.addCall)
}

func TestCastVote_ReleasesClaim(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.vote(userA, Up)
	require.NoError(t, err)
	_, err = f.vote(userA, Up)
	require.ErrorIs(t, err, common.ErrCooldownActive)

	assert.Empty(t, f.history.claims)
}

func TestCastVote_ConcurrentSamePair(t *testing.T) {
	f := newFixture(t, 0)

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.vote(userA, Up); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, f.comments.weight(commentC))
	assert.Equal(t, 4, f.users.karma(author))
}

func TestCastVote_WeightNeverNegative(t *testing.T) {
	f := newFixture(t, 2)
	for i := int64(0); i < 50; i++ {
		direction := Down
		if i%7 == 0 {
			direction = Up
		}
		_, err := f.engine.CastVote(context.Background(), 1000+i, commentC, direction, f.clock.Now())
		require.NoError(t, err)
		require.GreaterOrEqual(t, f.comments.weight(commentC), 0)
	}
}

func TestCastVote_Metrics(t *testing.T) {
	f := newFixture(t, 0)

	_, _ = f.vote(userA, Up)
	_, _ = f.vote(userA, Up)
	_, _ = f.vote(Anonymous, Down)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Votes.WithLabelValues("up", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Votes.WithLabelValues("up", KindCooldownActive)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Votes.WithLabelValues("down", KindNotAuthenticated)))
}

func TestInitializeCommentWeight(t *testing.T) {
	tests := []struct {
		name       string
		creator    int64
		user       *users.User
		wantWeight int
		wantSeeded bool
	}{
		{
			name:       "expert with karma",
			creator:    300,
			user:       &users.User{ID: 300, Karma: 7, IsExpert: true},
			wantWeight: 7,
			wantSeeded: true,
		},
		{
			name:    "expert without karma",
			creator: 300,
			user:    &users.User{ID: 300, Karma: 0, IsExpert: true},
		},
		{
			name:    "karma but not expert",
			creator: 300,
			user:    &users.User{ID: 300, Karma: 7},
		},
		{
			name:    "anonymous",
			creator: Anonymous,
		},
		{
			name:    "unknown user",
			creator: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			if tt.user != nil {
				f.users.byID[tt.user.ID] = tt.user
			}

			c, err := f.engine.InitializeCommentWeight(context.Background(), commentC, tt.creator)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWeight, f.comments.weight(commentC))
			if tt.wantSeeded {
				require.NotNil(t, c)
				assert.Equal(t, tt.wantWeight, c.Weight)
				assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SeededComments))
			} else {
				assert.Nil(t, c)
				assert.Equal(t, 0, f.comments.addCall)
			}
			assert.Equal(t, 0, f.history.recorded())
		})
	}
}

func TestInitializeCommentWeight_StoreFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.users.byID[300] = &users.User{ID: 300, Karma: 7, IsExpert: true}
	f.comments.addErr = errors.New("connection refused")

	_, err := f.engine.InitializeCommentWeight(context.Background(), commentC, 300)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestGetWeight(t *testing.T) {
	f := newFixture(t, 9)

	w, err := f.engine.GetWeight(context.Background(), commentC)
	require.NoError(t, err)
	assert.Equal(t, 9, w)

	_, err = f.engine.GetWeight(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrCommentNotFound)

	f.comments.getErr = errors.New("boom")
	_, err = f.engine.GetWeight(context.Background(), commentC)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}
