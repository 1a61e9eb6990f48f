// Package draft buffers unsent essay text so a restarted session can show
// what the student had typed before the last blur.
package draft

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/vanhoc/mocktest/internal/config"
)

// Store holds essay drafts per attempt and question.
type Store interface {
	Load(ctx context.Context, attemptID int64) (map[int64]string, error)
	Save(ctx context.Context, attemptID, questionID int64, text string) error
	Delete(ctx context.Context, attemptID, questionID int64) error
	Clear(ctx context.Context, attemptID int64) error
}

// MemoryStore keeps drafts in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[int64]map[int64]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[int64]map[int64]string)}
}

// Load returns a copy of the drafts kept for attemptID.
func (s *MemoryStore) Load(_ context.Context, attemptID int64) (map[int64]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]string, len(s.drafts[attemptID]))
	for q, text := range s.drafts[attemptID] {
		out[q] = text
	}
	return out, nil
}

// Save buffers text for one question.
func (s *MemoryStore) Save(_ context.Context, attemptID, questionID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.drafts[attemptID]
	if !ok {
		m = make(map[int64]string)
		s.drafts[attemptID] = m
	}
	m[questionID] = text
	return nil
}

// Delete drops the draft of one question.
func (s *MemoryStore) Delete(_ context.Context, attemptID, questionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts[attemptID], questionID)
	return nil
}

// Clear drops every draft of the attempt.
func (s *MemoryStore) Clear(_ context.Context, attemptID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, attemptID)
	return nil
}

// RedisStore keeps drafts in one hash per attempt, field = question id.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a new RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Load reads the attempt hash. Fields that are not question ids are skipped.
func (s *RedisStore) Load(ctx context.Context, attemptID int64) (map[int64]string, error) {
	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.EssayDraftsKey(attemptID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}
	out := make(map[int64]string, len(raw))
	for field, text := range raw {
		qid, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		out[qid] = text
	}
	return out, nil
}

// Save writes text into the attempt hash.
func (s *RedisStore) Save(ctx context.Context, attemptID, questionID int64, text string) error {
	key := config.CacheKey.EssayDraftsKey(attemptID)
	if err := s.rdb.HSet(ctx, key, strconv.FormatInt(questionID, 10), text).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Delete removes one question field from the attempt hash.
func (s *RedisStore) Delete(ctx context.Context, attemptID, questionID int64) error {
	key := config.CacheKey.EssayDraftsKey(attemptID)
	return s.rdb.HDel(ctx, key, strconv.FormatInt(questionID, 10)).Err()
}

// Clear deletes the attempt hash.
func (s *RedisStore) Clear(ctx context.Context, attemptID int64) error {
	return s.rdb.Del(ctx, config.CacheKey.EssayDraftsKey(attemptID)).Err()
}
