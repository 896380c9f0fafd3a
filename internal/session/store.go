// Package session owns the portal's authentication token: a single
// process-wide credential persisted across restarts and observed by every
// component that reacts to login state.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/clinicware/patient-portal/pkg/logging"
)

// TokenStore persists the one durable token slot. An empty string means no
// token is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Listener is invoked with the new token value on every change. An empty
// value means the session became absent.
type Listener func(token string)

// Store is the single owner of the session token. All mutation goes through
// Set and Clear; dependents subscribe rather than poll.
type Store struct {
	mu        sync.Mutex
	token     string
	persist   TokenStore
	logger    *logging.Logger
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a session store backed by the given persistence slot.
func NewStore(persist TokenStore, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		persist:   persist,
		logger:    logger.Component("session"),
		listeners: make(map[int]Listener),
	}
}

// Load restores a previously persisted token at startup. Dependents
// subscribed before Load are notified if a token was found.
func (s *Store) Load(ctx context.Context) error {
	token, err := s.persist.Load(ctx)
	if err != nil {
		return fmt.Errorf("session: load token: %w", err)
	}
	if token == "" {
		return nil
	}
	s.apply(token)
	return nil
}

// Token returns the current token, or empty when the session is absent.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Present reports whether a session token is currently held.
func (s *Store) Present() bool {
	return s.Token() != ""
}

// Set persists the token and notifies subscribers. Setting the value that is
// already held is a no-op.
func (s *Store) Set(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("session: refusing to set empty token, use Clear")
	}
	s.mu.Lock()
	if s.token == token {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.persist.Save(ctx, token); err != nil {
		return fmt.Errorf("session: persist token: %w", err)
	}
	s.apply(token)
	s.logger.Info("session established")
	return nil
}

// Clear removes the persisted token and resets the session to absent.
// Idempotent: clearing an absent session produces no observable change.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.persist.Delete(ctx); err != nil {
		return fmt.Errorf("session: remove persisted token: %w", err)
	}
	s.apply("")
	s.logger.Info("session cleared")
	return nil
}

// Subscribe registers a listener for token changes and returns its cancel
// function. Listeners run synchronously, in the goroutine that mutated the
// store, after the new value is visible through Token().
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) apply(token string) {
	s.mu.Lock()
	s.token = token
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(token)
	}
}
