// Package session holds the current authenticated identity for one running
// client instance, optionally persisted to durable local storage when the
// remote identity service owns no session of its own.
package session

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// Snapshots persists the current identity across restarts (mock mode only).
// Load returns (nil, nil) when no snapshot exists.
type Snapshots interface {
	Load() (*user.User, error)
	Save(usr user.User) error
	Drop() error
}

// NoSnapshots is used in remote mode: the identity service owns persistence,
// so every operation is a no-op.
type NoSnapshots struct{}

var _ Snapshots = NoSnapshots{}

func (NoSnapshots) Load() (*user.User, error) { return nil, nil }
func (NoSnapshots) Save(user.User) error      { return nil }
func (NoSnapshots) Drop() error               { return nil }

// Store is the single-writer holder of the current session. The store starts
// loading; hydration (from a snapshot, or from the remote session refresh)
// resolves it.
type Store struct {
	mu      sync.RWMutex
	current *user.User
	loading bool
	snaps   Snapshots
	logger  core.Logger
}

func NewStore(snaps Snapshots, logger core.Logger) *Store {
	return &Store{
		loading: true,
		snaps:   snaps,
		logger:  logger,
	}
}

// Hydrate attempts to restore the identity from durable storage. A missing or
// unreadable snapshot demotes the session to unauthenticated; it never fails
// loudly. Returns whether an identity was restored.
func (s *Store) Hydrate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, err := s.snaps.Load()
	if err != nil {
		s.logger.Warn("loading session snapshot", err)
		usr = nil
	}
	s.current = usr
	s.loading = false
	return usr != nil
}

// Current returns the current identity, if any.
func (s *Store) Current() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return user.User{}, false
	}
	return *s.current, true
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Set commits an identity as the current session and overwrites durable
// storage (a no-op in remote mode).
func (s *Store) Set(usr user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &usr
	s.loading = false
	return errors.Wrap(s.snaps.Save(usr), "saving session snapshot")
}

// Clear drops the current identity and its snapshot. Idempotent.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.loading = false
	return errors.Wrap(s.snaps.Drop(), "dropping session snapshot")
}
