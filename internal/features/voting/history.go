package voting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	historyKeyPrefix = "votes:user:"
	claimKeyPrefix   = "votes:claim:"
)

// RedisHistory хранит историю голосов в Redis.
// Для каждого пользователя один hash: comment_id → время голоса (unix ms).
type RedisHistory struct {
	rdb      redis.UniversalClient
	claimTTL time.Duration
}

// NewRedisHistory создаёт хранилище истории голосов.
// claimTTL ограничивает жизнь захвата пары, если процесс упал посреди голоса.
func NewRedisHistory(rdb redis.UniversalClient, claimTTL time.Duration) *RedisHistory {
	return &RedisHistory{rdb: rdb, claimTTL: claimTTL}
}

// pruneScript удаляет поля hash, только если значение всё ещё старше cutoff
// (или не число). Голос, записанный после HGETALL, переживает очистку.
// KEYS[1]: hash истории, ARGV[1]: cutoff в ms, ARGV[2..]: поля-кандидаты.
var pruneScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1])
local removed = 0
for i = 2, #ARGV do
	local raw = redis.call('HGET', KEYS[1], ARGV[i])
	if raw then
		local ms = tonumber(raw)
		if ms == nil or ms < cutoff then
			removed = removed + redis.call('HDEL', KEYS[1], ARGV[i])
		end
	end
end
return removed
`)

func historyKey(userID int64) string {
	return historyKeyPrefix + strconv.FormatInt(userID, 10)
}

func claimKey(userID, commentID int64) string {
	return fmt.Sprintf("%s%d:%d", claimKeyPrefix, userID, commentID)
}

// LastVote возвращает время последнего голоса пары или ok=false, если голоса не было.
func (h *RedisHistory) LastVote(ctx context.Context, userID, commentID int64) (time.Time, bool, error) {
	ms, err := h.rdb.HGet(ctx, historyKey(userID), strconv.FormatInt(commentID, 10)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("чтение истории голосов: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}

// RecordVote запоминает время голоса пары.
func (h *RedisHistory) RecordVote(ctx context.Context, userID, commentID int64, at time.Time) error {
	err := h.rdb.HSet(ctx, historyKey(userID), strconv.FormatInt(commentID, 10), at.UnixMilli()).Err()
	if err != nil {
		return fmt.Errorf("запись истории голосов: %w", err)
	}
	return nil
}

// Claim захватывает пару (SET NX PX). false: пару уже кто-то держит.
func (h *RedisHistory) Claim(ctx context.Context, userID, commentID int64) (bool, error) {
	ok, err := h.rdb.SetNX(ctx, claimKey(userID, commentID), 1, h.claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("захват пары для голоса: %w", err)
	}
	return ok, nil
}

// Release отпускает захват пары.
func (h *RedisHistory) Release(ctx context.Context, userID, commentID int64) error {
	if err := h.rdb.Del(ctx, claimKey(userID, commentID)).Err(); err != nil {
		return fmt.Errorf("освобождение пары: %w", err)
	}
	return nil
}

// Prune удаляет записи старше cutoff и возвращает их число.
// Пустой hash Redis удаляет сам.
func (h *RedisHistory) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	cutoffMs := cutoff.UnixMilli()
	removed := 0

	iter := h.rdb.Scan(ctx, 0, historyKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		entries, err := h.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return removed, fmt.Errorf("чтение %s: %w", key, err)
		}

		var stale []string
		for field, raw := range entries {
			ms, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || ms < cutoffMs {
				stale = append(stale, field)
			}
		}
		if len(stale) == 0 {
			continue
		}

		args := make([]any, 0, len(stale)+1)
		args = append(args, cutoffMs)
		for _, field := range stale {
			args = append(args, field)
		}
		n, err := pruneScript.Run(ctx, h.rdb, []string{key}, args...).Int()
		if err != nil {
			return removed, fmt.Errorf("очистка %s: %w", key, err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("обход истории голосов: %w", err)
	}
	return removed, nil
}

// Purge удаляет всю историю голосов и захваты (деинсталляция).
func (h *RedisHistory) Purge(ctx context.Context) (int, error) {
	removed := 0
	for _, pattern := range []string{historyKeyPrefix + "*", claimKeyPrefix + "*"} {
		iter := h.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			n, err := h.rdb.Del(ctx, iter.Val()).Result()
			if err != nil {
				return removed, fmt.Errorf("удаление %s: %w", iter.Val(), err)
			}
			removed += int(n)
		}
		if err := iter.Err(); err != nil {
			return removed, fmt.Errorf("обход %s: %w", pattern, err)
		}
	}
	return removed, nil
}
