package gateway

import (
	"sort"
	"sync"
	"time"

	"github.com/tkivisto/ecugate/pkg/messages"
)

// maxStoreHistory bounds the retained frame history.
const maxStoreHistory = 1000

// Store keeps the latest parameter set per ECU plus a bounded history
// of received frames. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	latest    map[string]map[string]string
	updatedAt map[string]time.Time
	history   []*messages.ECUData
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		latest:    make(map[string]map[string]string),
		updatedAt: make(map[string]time.Time),
	}
}

// Update records msg as the latest frame for its ECU and appends it to
// the history, evicting the oldest frame beyond maxStoreHistory.
func (s *Store) Update(msg *messages.ECUData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest[msg.ECUID()] = msg.Params()
	s.updatedAt[msg.ECUID()] = time.Now()

	s.history = append(s.history, msg)
	if len(s.history) > maxStoreHistory {
		s.history = s.history[1:]
	}
}

// Latest returns the most recent parameters for ecuID and the time they
// arrived. ok is false when the ECU has never reported.
func (s *Store) Latest(ecuID string) (params map[string]string, updatedAt time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.latest[ecuID]
	if !ok {
		return nil, time.Time{}, false
	}
	params = make(map[string]string, len(stored))
	for k, v := range stored {
		params[k] = v
	}
	return params, s.updatedAt[ecuID], true
}

// All returns a copy of the latest parameters of every known ECU.
func (s *Store) All() map[string]map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]map[string]string, len(s.latest))
	for ecuID, params := range s.latest {
		copied := make(map[string]string, len(params))
		for k, v := range params {
			copied[k] = v
		}
		out[ecuID] = copied
	}
	return out
}

// ECUIDs returns the sorted identifiers of every ECU seen so far.
func (s *Store) ECUIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.latest))
	for id := range s.latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// History returns up to max of the most recent frames, oldest first.
// max <= 0 returns the whole retained history.
func (s *Store) History(max int) []*messages.ECUData {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if max > 0 && len(s.history) > max {
		start = len(s.history) - max
	}
	out := make([]*messages.ECUData, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}
