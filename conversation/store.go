package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists conversation snapshots per chat session
type Store interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Save(ctx context.Context, sessionID string, state State) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore keeps snapshots in process
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.states[sessionID]), nil
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[sessionID] = clone(state)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sessionID)
	return nil
}

// RedisStore keeps JSON snapshots under conversation:<session> with a TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(sessionID string) string {
	return "conversation:" + sessionID
}

func (r *RedisStore) Load(ctx context.Context, sessionID string) (State, error) {
	raw, err := r.client.Get(ctx, redisKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to load conversation %s: %w", sessionID, err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("failed to decode conversation %s: %w", sessionID, err)
	}
	return state, nil
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode conversation %s: %w", sessionID, err)
	}
	if err := r.client.Set(ctx, redisKey(sessionID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", sessionID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", sessionID, err)
	}
	return nil
}

// Update runs a load-reduce-save cycle inside WATCH/MULTI so that writers on
// other instances cannot interleave with it.
func (r *RedisStore) Update(ctx context.Context, sessionID string, fn func(State) (State, error)) (State, error) {
	key := redisKey(sessionID)
	var result State

	txf := func(tx *redis.Tx) error {
		current := State{}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("failed to decode conversation %s: %w", sessionID, err)
			}
		}

		next, err := fn(current)
		if err != nil {
			result = current
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, r.ttl)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return result, err
	}
	return State{}, fmt.Errorf("conversation %s: too much write contention", sessionID)
}
