package memory

import (
	"context"
	"sync"
)

// AckStore keeps acknowledgements for the lifetime of the process.
type AckStore struct {
	mu   sync.Mutex
	acks map[string]map[string]struct{}
}

func NewAckStore() *AckStore {
	return &AckStore{acks: make(map[string]map[string]struct{})}
}

func (s *AckStore) Load(ctx context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.acks[sessionID]))
	for id := range s.acks[sessionID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *AckStore) Add(ctx context.Context, sessionID, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.acks[sessionID]
	if !ok {
		set = make(map[string]struct{})
		s.acks[sessionID] = set
	}
	set[orderID] = struct{}{}
	return nil
}
