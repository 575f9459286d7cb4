// Package app holds the in-memory view of the active session and keeps it in
// step with the store.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tartampluch/remindme/internal/account"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/engine"
	"github.com/tartampluch/remindme/internal/metrics"
	"github.com/tartampluch/remindme/internal/model"
	"github.com/tartampluch/remindme/internal/store"
)

var (
	// ErrNoSession is returned by mutations attempted without a logged-in account.
	ErrNoSession = errors.New(config.ErrNoSession)

	// ErrNotFound is returned when a birthday or note id is unknown.
	ErrNotFound = errors.New(config.ErrNotFound)
)

// Snapshot is a consistent copy of the session view.
type Snapshot struct {
	Email     string           `json:"email,omitempty"`
	Birthdays []model.Birthday `json:"birthdays"`
	Notes     []model.Note     `json:"notes"`
	Profile   model.Profile    `json:"profile"`
}

// Active reports whether the snapshot belongs to a logged-in account.
func (s Snapshot) Active() bool { return s.Email != "" }

// State is the application state shared by the HTTP handlers, the worker and
// the store watcher. Loading a session happens under the write lock, so a
// reader never sees a half-loaded account.
type State struct {
	backend  store.Backend
	accounts *account.Service
	clock    engine.Clock

	mu        sync.RWMutex
	email     string
	birthdays []model.Birthday
	notes     []model.Note
	profile   model.Profile
}

// New creates a State in guest mode.
func New(backend store.Backend, accounts *account.Service, clock engine.Clock) *State {
	s := &State{backend: backend, accounts: accounts, clock: clock}
	s.resetLocked()
	return s
}

// Snapshot returns a copy of the current view.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Email:     s.email,
		Birthdays: slices.Clone(s.birthdays),
		Notes:     slices.Clone(s.notes),
		Profile:   s.profile,
	}
}

// Email returns the active account, "" for a guest.
func (s *State) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// Birthday returns one birthday of the active session.
func (s *State) Birthday(id string) (model.Birthday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := slices.IndexFunc(s.birthdays, func(b model.Birthday) bool { return b.ID == id })
	if i < 0 {
		return model.Birthday{}, ErrNotFound
	}
	return s.birthdays[i], nil
}

// Login authenticates the account and loads its data.
func (s *State) Login(ctx context.Context, email, password string) error {
	cred, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		slog.InfoContext(ctx, config.MsgLoginFailed,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyError, err)
		return err
	}

	if err := s.Load(ctx, cred.Email); err != nil {
		return err
	}
	return store.SetJSON(ctx, s.backend, config.KeyCurrentUser, cred.Email)
}

// Logout clears the session pointer and the in-memory view. Stored data is kept.
func (s *State) Logout(ctx context.Context) error {
	s.mu.Lock()
	email := s.email
	s.resetLocked()
	s.mu.Unlock()

	if err := s.backend.Delete(ctx, config.KeyCurrentUser); err != nil {
		return err
	}
	slog.InfoContext(ctx, config.MsgSessionCleared,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyUser, email)
	return nil
}

// Restore re-establishes the persisted session, if any. It reports whether a
// session is active afterwards.
func (s *State) Restore(ctx context.Context) (bool, error) {
	var email string
	err := store.GetJSON(ctx, s.backend, config.KeyCurrentUser, &email)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if errors.Is(err, store.ErrCorrupt) {
		s.discardCorrupt(ctx, config.KeyCurrentUser, err)
		return false, s.backend.Delete(ctx, config.KeyCurrentUser)
	}
	if err != nil {
		return false, err
	}

	known, err := s.accounts.Exists(ctx, email)
	if err != nil {
		return false, err
	}
	if !known {
		slog.WarnContext(ctx, config.MsgSessionStale,
			config.LogKeyComponent, config.CompApp,
			config.LogKeyUser, email)
		return false, s.backend.Delete(ctx, config.KeyCurrentUser)
	}

	if err := s.Load(ctx, email); err != nil {
		return false, err
	}
	slog.InfoContext(ctx, config.MsgSessionRestored,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyUser, email)
	return true, nil
}

// Load replaces the view with the stored data of email. Absent collections
// start empty and an absent profile is derived from the email.
func (s *State) Load(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	birthdays, err := readKey(ctx, s, store.UserKey(store.KindBirthdays, email), []model.Birthday{})
	if err != nil {
		return err
	}
	notes, err := readKey(ctx, s, store.UserKey(store.KindNotes, email), []model.Note{})
	if err != nil {
		return err
	}
	profile, err := readKey(ctx, s, store.UserKey(store.KindProfile, email), model.DefaultProfile(email))
	if err != nil {
		return err
	}
	if birthdays == nil {
		birthdays = []model.Birthday{}
	}
	if notes == nil {
		notes = []model.Note{}
	}

	s.email = email
	s.birthdays = birthdays
	s.notes = notes
	s.profile = profile

	slog.DebugContext(ctx, config.MsgSessionLoaded,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyUser, email,
		config.LogKeyCount, len(birthdays))
	return nil
}

// Flush re-persists the whole session view. It is a no-op for a guest.
func (s *State) Flush(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.email == "" {
		return nil
	}
	writes := []struct {
		key   string
		value any
	}{
		{store.UserKey(store.KindBirthdays, s.email), s.birthdays},
		{store.UserKey(store.KindNotes, s.email), s.notes},
		{store.UserKey(store.KindProfile, s.email), s.profile},
		{config.KeyCurrentUser, s.email},
	}
	for _, w := range writes {
		if err := store.SetJSON(ctx, s.backend, w.key, w.value); err != nil {
			return err
		}
	}
	return nil
}

// readKey decodes key, falling back when it is missing. A corrupt value is
// logged, counted and replaced by the fallback too.
func readKey[T any](ctx context.Context, s *State, key string, fallback T) (T, error) {
	var v T
	err := store.GetJSON(ctx, s.backend, key, &v)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, store.ErrNotFound):
		return fallback, nil
	case errors.Is(err, store.ErrCorrupt):
		s.discardCorrupt(ctx, key, err)
		return fallback, nil
	default:
		return fallback, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
}

func (s *State) discardCorrupt(ctx context.Context, key string, err error) {
	kind, _, _ := store.ParseUserKey(key)
	if kind == "" {
		kind = store.Kind(key)
	}
	metrics.Corrupt(string(kind))
	slog.WarnContext(ctx, config.MsgCorruptValue,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyKey, key,
		config.LogKeyError, err)
}

// resetLocked restores guest defaults. Callers hold the write lock.
func (s *State) resetLocked() {
	s.email = ""
	s.birthdays = []model.Birthday{}
	s.notes = []model.Note{}
	s.profile = model.GuestProfile()
}
