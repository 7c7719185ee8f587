package voting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"serotonyl.ru/comment-popularity/internal/common"
	"serotonyl.ru/comment-popularity/internal/features/comments"
	"serotonyl.ru/comment-popularity/internal/features/users"
)

type stubComments struct {
	mu      sync.Mutex
	byID    map[int64]*comments.Comment
	addErr  error
	getErr  error
	addCall int
}

func newStubComments(list ...*comments.Comment) *stubComments {
	s := &stubComments{byID: make(map[int64]*comments.Comment)}
	for _, c := range list {
		s.byID[c.ID] = c
	}
	return s
}

func (s *stubComments) GetByID(ctx context.Context, id int64) (*comments.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	c, ok := s.byID[id]
	if !ok {
		return nil, common.ErrCommentNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *stubComments) AddWeight(ctx context.Context, id int64, delta int) (*comments.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCall++
	if s.addErr != nil {
		return nil, s.addErr
	}
	c, ok := s.byID[id]
	if !ok {
		return nil, common.ErrCommentNotFound
	}
	c.Weight = max(0, c.Weight+delta)
	cp := *c
	return &cp, nil
}

func (s *stubComments) weight(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id].Weight
}

type stubUsers struct {
	mu         sync.Mutex
	byID       map[int64]*users.User
	resolveErr error
	karmaErr   error
}

func newStubUsers(list ...*users.User) *stubUsers {
	s := &stubUsers{byID: make(map[int64]*users.User)}
	for _, u := range list {
		s.byID[u.ID] = u
	}
	return s
}

func (s *stubUsers) GetByID(ctx context.Context, id int64) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubUsers) ResolveByAuthorIdentity(ctx context.Context, identity string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolveErr != nil {
		return 0, s.resolveErr
	}
	for _, u := range s.byID {
		if identity != "" && u.Email == identity {
			return u.ID, nil
		}
	}
	return 0, common.ErrUserNotFound
}

func (s *stubUsers) IncrementKarma(ctx context.Context, id int64, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.karmaErr != nil {
		return 0, s.karmaErr
	}
	u, ok := s.byID[id]
	if !ok {
		return 0, common.ErrUserNotFound
	}
	u.Karma += delta
	return u.Karma, nil
}

func (s *stubUsers) karma(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id].Karma
}

type memHistory struct {
	mu        sync.Mutex
	votes     map[string]time.Time
	claims    map[string]bool
	lastErr   error
	recordErr error
	claimErr  error
}

func newMemHistory() *memHistory {
	return &memHistory{
		votes:  make(map[string]time.Time),
		claims: make(map[string]bool),
	}
}

func pairKey(userID, commentID int64) string {
	return fmt.Sprintf("%d:%d", userID, commentID)
}

func (h *memHistory) LastVote(ctx context.Context, userID, commentID int64) (time.Time, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastErr != nil {
		return time.Time{}, false, h.lastErr
	}
	at, ok := h.votes[pairKey(userID, commentID)]
	return at, ok, nil
}

func (h *memHistory) RecordVote(ctx context.Context, userID, commentID int64, at time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.recordErr != nil {
		return h.recordErr
	}
	h.votes[pairKey(userID, commentID)] = at
	return nil
}

func (h *memHistory) Claim(ctx context.Context, userID, commentID int64) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.claimErr != nil {
		return false, h.claimErr
	}
	key := pairKey(userID, commentID)
	if h.claims[key] {
		return false, nil
	}
	h.claims[key] = true
	return true, nil
}

func (h *memHistory) Release(ctx context.Context, userID, commentID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.claims, pairKey(userID, commentID))
	return nil
}

func (h *memHistory) recorded() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.votes)
}
