package callrecord

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps call records in-process for local/dev use.
type InMemoryStore struct {
	mu       sync.RWMutex
	turns    map[string][]TurnRecord
	bookings []BookingRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{turns: make(map[string][]TurnRecord)}
}

func (s *InMemoryStore) SaveTurn(_ context.Context, record TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.turns[record.CallID] = append(s.turns[record.CallID], record)
	return nil
}

func (s *InMemoryStore) SaveBooking(_ context.Context, record BookingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.bookings = append(s.bookings, record)
	return nil
}

func (s *InMemoryStore) Transcript(_ context.Context, callID string, limit int) ([]TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[callID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]TurnRecord, limit)
	copy(out, arr[len(arr)-limit:])
	return out, nil
}

// Bookings returns all recorded bookings, oldest first.
func (s *InMemoryStore) Bookings() []BookingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BookingRecord, len(s.bookings))
	copy(out, s.bookings)
	return out
}

func (s *InMemoryStore) Close() error { return nil }
