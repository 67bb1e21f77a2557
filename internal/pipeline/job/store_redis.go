package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"certpass/pkg/platform/sentinel"
)

// RedisStore shares job state across instances. Snapshots are small (no
// document bytes), so whole-state JSON writes keep the contract identical to
// the memory store.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. TTL bounds how long finished jobs
// remain queryable; zero means no expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(id string) string {
	return "certpass:job:" + id
}

func (s *RedisStore) Save(ctx context.Context, state State) error {
	state.UpdatedAt = time.Now()
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal job state: %w", err)
	}
	if err := s.client.Set(ctx, key(state.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save job state: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, id string) (State, error) {
	payload, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, sentinel.ErrNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("load job state: %w", err)
	}
	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return State{}, fmt.Errorf("decode job state: %w", err)
	}
	return state, nil
}
