package memory

import (
	"context"
	"sync"

	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

// UserStore keeps the roster in insertion order.
type UserStore struct {
	mu    sync.RWMutex
	users []types.AccessUser
}

func NewUserStore(seed ...types.AccessUser) *UserStore {
	s := &UserStore{}
	s.users = append(s.users, seed...)
	return s
}

func (s *UserStore) ListUsers(_ context.Context) ([]types.AccessUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AccessUser, len(s.users))
	copy(out, s.users)
	return out, nil
}

func (s *UserStore) PutUser(_ context.Context, u types.AccessUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID != u.ID && s.users[i].Plate == u.Plate {
			return store.ErrDuplicatePlate
		}
	}
	for i := range s.users {
		if s.users[i].ID == u.ID {
			s.users[i] = u
			return nil
		}
	}
	s.users = append(s.users, u)
	return nil
}

func (s *UserStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *UserStore) ReplaceAll(_ context.Context, users []types.AccessUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make([]types.AccessUser, len(users))
	copy(s.users, users)
	return nil
}
