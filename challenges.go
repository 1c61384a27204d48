package notesauth

import (
	"sync"
	"time"
)

// Challenge is the pending OTP state for one identity
type Challenge struct {
	Identity  string    `json:"identity"`
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpiredAt reports whether the challenge is stale at the given instant.
// Expiry is checked lazily at verify time; there is no background sweep.
func (c *Challenge) IsExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ChallengeStore holds pending OTP challenges keyed by identity.
//
// Put overwrites any prior challenge for the identity (last write wins).
// Take removes and returns the challenge in one step: a verify attempt,
// successful or not, consumes the entry, so concurrent verifiers resolve
// deterministically - exactly one observes the challenge and the rest get
// ErrChallengeNotFound.
type ChallengeStore interface {
	Put(identity, codeHash string, ttl time.Duration) error
	Take(identity string) (*Challenge, error)
}

// MemoryChallengeStore is a mutex-guarded in-process ChallengeStore.
// Expired entries are reclaimed lazily when taken, never by a timer.
type MemoryChallengeStore struct {
	mu      sync.Mutex
	entries map[string]*Challenge

	// Now can be overridden in tests to simulate clock movement
	Now func() time.Time
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{entries: make(map[string]*Challenge)}
}

func (s *MemoryChallengeStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MemoryChallengeStore) Put(identity, codeHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[identity] = &Challenge{
		Identity:  identity,
		CodeHash:  codeHash,
		ExpiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryChallengeStore) Take(identity string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.entries[identity]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	delete(s.entries, identity)
	return challenge, nil
}
