package otp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore keeps codes in a mutex-guarded map. Entries set on one
// instance are invisible to another, so this is for single-process
// deployments and tests only.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[uuid.UUID]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Set stores the code with expiry now+TTL, overwriting any previous entry.
func (s *MemoryStore) Set(_ context.Context, userID uuid.UUID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[userID] = memoryEntry{
		code:      code,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Validate checks the submitted code. An expired entry counts as absent.
// A matching entry is consumed; a mismatched one stays until it expires.
func (s *MemoryStore) Validate(_ context.Context, userID uuid.UUID, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok {
		return false, nil
	}

	if s.now().After(entry.expiresAt) {
		delete(s.entries, userID)
		return false, nil
	}

	if entry.code != code {
		return false, nil
	}

	delete(s.entries, userID)
	return true, nil
}
