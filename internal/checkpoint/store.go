// Package checkpoint persists suspended workflow state keyed by thread ID so
// a later resume call can continue where the workflow left off.
package checkpoint

import (
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Rohitw3code/ticket-triage-agent/internal/models"
)

// ErrSessionNotFound indicates the thread ID is unknown, already completed,
// or evicted. Use errors.Is() to check for it in calling code.
var ErrSessionNotFound = errors.New("session not found")

// Store is an in-process keyed snapshot store. Stale sessions are evicted by
// TTL and by a max-entry cap; each thread ID maps to exactly one live state.
// All methods are safe for concurrent use.
type Store struct {
	cache  *expirable.LRU[string, models.TicketState]
	logger *slog.Logger
}

// NewStore creates a checkpoint store. maxEntries caps the number of
// suspended sessions held at once; ttl bounds how long an abandoned session
// can be resumed.
func NewStore(maxEntries int, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{logger: logger}
	s.cache = expirable.NewLRU[string, models.TicketState](maxEntries, func(threadID string, _ models.TicketState) {
		logger.Debug("checkpoint evicted", "thread_id", threadID)
	}, ttl)
	return s
}

// Save stores a snapshot of the suspended state under its thread ID,
// replacing any previous snapshot for the same session.
func (s *Store) Save(threadID string, state models.TicketState) {
	s.cache.Add(threadID, state)
	s.logger.Debug("checkpoint saved", "thread_id", threadID)
}

// Load retrieves a suspended state. The snapshot stays in the store until
// Delete, so a failed resume can be retried.
func (s *Store) Load(threadID string) (models.TicketState, error) {
	state, ok := s.cache.Get(threadID)
	if !ok {
		return models.TicketState{}, ErrSessionNotFound
	}
	return state, nil
}

// Delete removes a session once its workflow has completed.
func (s *Store) Delete(threadID string) {
	s.cache.Remove(threadID)
}

// Len returns the number of live suspended sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}
