package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = time.Hour

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, testTTL), mr, client
}

func TestRedisStoreSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newRedisStore(t)

	empty, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, State{}, empty)

	state := mustReduce(t, State{},
		SetSessionID{ID: "s1"},
		AddUserMessage{Text: "denim jacket"},
		AddAIMessage{Text: "Here you go"},
		AddProducts{Products: products(5)},
	)
	require.NoError(t, store.Save(ctx, "s1", state))
	assert.Equal(t, testTTL, mr.TTL(redisKey("s1")))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, state.ActiveGroupID, loaded.ActiveGroupID)
	g, ok := loaded.ActiveGroup()
	require.True(t, ok)
	assert.Len(t, g.Products, 5)
	assert.Len(t, g.DisplayedProducts, 4)

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.False(t, mr.Exists(redisKey("s1")))
	cleared, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, State{}, cleared)
}

func TestRedisStoreLoadRejectsCorruptSnapshot(t *testing.T) {
	store, mr, _ := newRedisStore(t)
	require.NoError(t, mr.Set(redisKey("s1"), "{not json"))

	_, err := store.Load(context.Background(), "s1")
	assert.ErrorContains(t, err, "failed to decode conversation s1")
}

func TestRedisStoreUpdateStartsFromEmpty(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newRedisStore(t)

	got, err := store.Update(ctx, "s1", func(s State) (State, error) {
		assert.Equal(t, State{}, s)
		return Reduce(s, AddUserMessage{Text: "sandals"})
	})
	require.NoError(t, err)
	require.Len(t, got.Groups, 1)
	assert.Equal(t, testTTL, mr.TTL(redisKey("s1")))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, got.ActiveGroupID, loaded.ActiveGroupID)
}

func TestRedisStoreUpdateErrorKeepsStoredState(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newRedisStore(t)
	seed := mustReduce(t, State{}, AddUserMessage{Text: "belts"})
	require.NoError(t, store.Save(ctx, "s1", seed))

	boom := errors.New("boom")
	got, err := store.Update(ctx, "s1", func(s State) (State, error) {
		return State{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, seed.ActiveGroupID, got.ActiveGroupID)

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, loaded.Groups, 1)
}

func TestRedisStoreUpdateRetriesAfterConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	store, _, client := newRedisStore(t)
	other := NewRedisStore(client, testTTL)

	attempts := 0
	got, err := store.Update(ctx, "s1", func(s State) (State, error) {
		attempts++
		if attempts == 1 {
			// another instance writes between our read and our EXEC
			require.NoError(t, other.Save(ctx, "s1", mustReduce(t, State{}, AddUserMessage{Text: "from elsewhere"})))
		}
		return Reduce(s, AddUserMessage{Text: "mine"})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	require.Len(t, got.Groups, 2)
	assert.Equal(t, "from elsewhere", got.Groups[0].UserMessage.Text)
	assert.Equal(t, "mine", got.Groups[1].UserMessage.Text)

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, loaded.Groups, 2)
}

func TestRedisStoreUpdateGivesUpUnderConstantContention(t *testing.T) {
	ctx := context.Background()
	store, _, client := newRedisStore(t)
	other := NewRedisStore(client, testTTL)

	attempts := 0
	_, err := store.Update(ctx, "s1", func(s State) (State, error) {
		attempts++
		require.NoError(t, other.Save(ctx, "s1", State{SessionID: "other"}))
		return Reduce(s, SetSessionID{ID: "mine"})
	})
	assert.ErrorContains(t, err, "too much write contention")
	assert.Equal(t, 3, attempts)

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "other", loaded.SessionID)
}

func TestServiceDispatchThroughRedis(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newRedisStore(t)
	svc := NewService(store)

	state, err := svc.Dispatch(ctx, "s1", AddUserMessage{Text: "boots"}, AddAIMessage{Text: "ok"}, AddProducts{Products: products(6)})
	require.NoError(t, err)

	got, err := svc.Dispatch(ctx, "s1", AddAIMessage{Text: "partial"}, GetMoreProducts{GroupID: "ghost"})
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.Equal(t, state.ActiveGroupID, got.ActiveGroupID)

	loaded, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	g, ok := loaded.ActiveGroup()
	require.True(t, ok)
	assert.Len(t, g.AIMessages, 1)

	require.NoError(t, svc.Reset(ctx, "s1"))
	cleared, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, State{}, cleared)
}
