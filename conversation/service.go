package conversation

import (
	"context"
	"hash/fnv"
	"sync"
)

// lockStripes bounds the session locks regardless of how many sessions exist
const lockStripes = 64

// updater is implemented by stores that can apply a change atomically
type updater interface {
	Update(ctx context.Context, sessionID string, fn func(State) (State, error)) (State, error)
}

// Service applies actions to persisted sessions. Calls for one session run
// one at a time inside this process.
type Service struct {
	store Store
	locks [lockStripes]sync.Mutex
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// stripe maps a session to one of the fixed locks. Sessions sharing a stripe
// only wait on each other.
func stripe(sessionID string) int {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return int(h.Sum32() % lockStripes)
}

func (s *Service) lock(sessionID string) func() {
	mu := &s.locks[stripe(sessionID)]
	mu.Lock()
	return mu.Unlock
}

// State returns the current snapshot
func (s *Service) State(ctx context.Context, sessionID string) (State, error) {
	return s.store.Load(ctx, sessionID)
}

// Dispatch reduces actions in order and saves the result. If any action
// fails nothing is saved and the error is returned with the stored state.
func (s *Service) Dispatch(ctx context.Context, sessionID string, actions ...Action) (State, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	apply := func(state State) (State, error) {
		for _, a := range actions {
			next, err := Reduce(state, a)
			if err != nil {
				return state, err
			}
			state = next
		}
		return state, nil
	}

	if u, ok := s.store.(updater); ok {
		return u.Update(ctx, sessionID, apply)
	}

	current, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	next, err := apply(current)
	if err != nil {
		return current, err
	}
	if err := s.store.Save(ctx, sessionID, next); err != nil {
		return current, err
	}
	return next, nil
}

// Reset clears the session, both in the store and for any reader
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	unlock := s.lock(sessionID)
	defer unlock()
	return s.store.Delete(ctx, sessionID)
}
