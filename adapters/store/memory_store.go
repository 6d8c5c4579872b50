package store

import (
	"context"
	"sync"

	"github.com/pinftbay/piauth/core"
	"github.com/pinftbay/piauth/ports"
)

// MemoryStore is an in-memory implementation of the ChallengeStore interface.
// Records are kept past their expiry until overwritten or expired explicitly.
type MemoryStore struct {
	challenges map[string]core.Challenge
	mu         sync.RWMutex
}

var _ ports.ChallengeStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]core.Challenge),
	}
}

// Put stores the challenge for a user, last write wins
func (s *MemoryStore) Put(ctx context.Context, userID string, challenge core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[userID] = challenge
	return nil
}

// Get returns the challenge stored for a user
func (s *MemoryStore) Get(ctx context.Context, userID string) (core.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	challenge, ok := s.challenges[userID]
	if !ok {
		return core.Challenge{}, core.ErrChallengeNotFound
	}
	return challenge, nil
}

// Expire removes the challenge stored for a user
func (s *MemoryStore) Expire(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, userID)
	return nil
}

// Len returns the number of stored challenges
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.challenges)
}
