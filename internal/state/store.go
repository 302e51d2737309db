package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/five82/repeater/internal/query"
	"github.com/five82/repeater/internal/repeater"
)

// Snapshot is the API health and session view shown in the header.
type Snapshot struct {
	User                repeater.User
	HasUser             bool
	LastUpdated         time.Time
	LastError           error
	LastErrorKey        string // query key of the failing fetch, if any
	ConsecutiveFailures int    // Number of consecutive failed fetches
	Unauthorized        bool
}

// IsOffline returns true when the API has failed several fetches in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2 && !s.Unauthorized
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

// Record notes the outcome of a fetch. Its signature matches query.Observer
// so the cache can report every applied fetch here.
func (s *Store) Record(key query.Key, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = s.clock()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastErrorKey = key.String()
		s.snapshot.ConsecutiveFailures++
		s.snapshot.Unauthorized = errors.Is(err, repeater.ErrUnauthorized)
		return
	}
	s.snapshot.LastError = nil
	s.snapshot.LastErrorKey = ""
	s.snapshot.ConsecutiveFailures = 0
	s.snapshot.Unauthorized = false
}

// SetUser stores the signed-in user. Nil clears it.
func (s *Store) SetUser(user *repeater.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user == nil {
		s.snapshot.User = repeater.User{}
		s.snapshot.HasUser = false
		return
	}
	s.snapshot.User = *user
	s.snapshot.HasUser = true
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
