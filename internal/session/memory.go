package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"courserag/internal/domain"
)

// MemoryStore keeps session history in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	maxTurns int
	sessions map[string][]domain.Turn
}

func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = 5
	}
	return &MemoryStore{
		maxTurns: maxTurns,
		sessions: make(map[string][]domain.Turn),
	}
}

func (s *MemoryStore) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()
	return id
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.sessions[sessionID], turn)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.sessions[sessionID] = turns
	return nil
}
